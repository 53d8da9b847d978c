package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicaldocs/internal/config"
	"github.com/ehr/clinicaldocs/internal/platform/ccda"
)

func parseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "parse FILE",
		Short: "Print the clinical content of a C-CDA document as JSON",
		Long:  "Extracts patient demographics and the clinical sections of FILE (- for stdin). No database is used.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("strict-dates") {
				cfg.StrictDates, _ = cmd.Flags().GetBool("strict-dates")
			}
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			logger := newLogger(cmd.ErrOrStderr(), cfg.Env)
			return parseDocument(data, cfg.OrgOID, cfg.StrictDates, logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().Bool("strict-dates", false, "Fail on dates that are not valid HL7 timestamps")
	return cmd
}

func parseDocument(data []byte, orgOID string, strict bool, logger zerolog.Logger, out io.Writer) error {
	doc, err := ccda.NewExtractor(logger, orgOID, strict).Extract(data)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode parsed document: %w", err)
	}
	return nil
}
