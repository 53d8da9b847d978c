package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ehr/clinicaldocs/internal/platform/ccda"
	"github.com/ehr/clinicaldocs/internal/platform/db"
)

type generateOptions struct {
	kind         ccda.DocumentKind
	patientID    string
	encounterID  string
	referralFile string
}

// snapshotRunner runs fn against one consistent view of the chart.
type snapshotRunner func(ctx context.Context, fn func(ctx context.Context) error) error

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a clinical document for a patient to stdout",
	}

	kinds := []struct {
		use, short string
		kind       ccda.DocumentKind
	}{
		{"ccd", "Continuity of Care Document", ccda.KindContinuityOfCare},
		{"referral", "Referral note (requires --referral)", ccda.KindReferral},
		{"discharge", "Discharge summary (requires --encounter)", ccda.KindDischarge},
		{"transfer", "Transfer summary (requires --encounter)", ccda.KindTransfer},
	}
	for _, k := range kinds {
		opts := &generateOptions{kind: k.kind}
		sub := &cobra.Command{
			Use:   k.use,
			Short: k.short,
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runGenerate(cmd, *opts)
			},
		}
		sub.Flags().StringVar(&opts.patientID, "patient", "", "Patient identifier")
		_ = sub.MarkFlagRequired("patient")
		switch k.kind {
		case ccda.KindReferral:
			sub.Flags().StringVar(&opts.referralFile, "referral", "", "JSON referral details file, or - for stdin")
			_ = sub.MarkFlagRequired("referral")
		case ccda.KindDischarge, ccda.KindTransfer:
			sub.Flags().StringVar(&opts.encounterID, "encounter", "", "Encounter identifier")
			_ = sub.MarkFlagRequired("encounter")
		}
		cmd.AddCommand(sub)
	}
	return cmd
}

func runGenerate(cmd *cobra.Command, opts generateOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Env)

	ctx := cmd.Context()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	svc := newDocumentService(cfg, newChartSource(pool), logger)
	run := func(ctx context.Context, fn func(ctx context.Context) error) error {
		return db.RunInSnapshot(ctx, pool, fn)
	}
	return generateDocument(ctx, svc, run, opts, cmd.InOrStdin(), cmd.OutOrStdout())
}

func generateDocument(ctx context.Context, svc *ccda.Service, run snapshotRunner, opts generateOptions, stdin io.Reader, out io.Writer) error {
	var details ccda.ReferralDetails
	if opts.kind == ccda.KindReferral {
		data, err := readInput(opts.referralFile, stdin)
		if err != nil {
			return fmt.Errorf("read referral details: %w", err)
		}
		if err := json.Unmarshal(data, &details); err != nil {
			return fmt.Errorf("decode referral details: %w", err)
		}
	}

	var doc []byte
	err := run(ctx, func(ctx context.Context) error {
		var err error
		switch opts.kind {
		case ccda.KindContinuityOfCare:
			doc, err = svc.GenerateContinuityDocument(ctx, opts.patientID)
		case ccda.KindReferral:
			doc, err = svc.GenerateReferralNote(ctx, opts.patientID, details)
		case ccda.KindDischarge:
			doc, err = svc.GenerateDischargeSummary(ctx, opts.patientID, opts.encounterID)
		case ccda.KindTransfer:
			doc, err = svc.GenerateTransferSummary(ctx, opts.patientID, opts.encounterID)
		default:
			err = fmt.Errorf("unknown document kind %q", opts.kind)
		}
		return err
	})
	if err != nil {
		return err
	}
	_, err = out.Write(doc)
	return err
}
