package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicaldocs/internal/config"
	"github.com/ehr/clinicaldocs/internal/domain/chart"
	"github.com/ehr/clinicaldocs/internal/platform/auth"
	"github.com/ehr/clinicaldocs/internal/platform/ccda"
	"github.com/ehr/clinicaldocs/internal/platform/db"
)

// newLogger writes JSON to w, or console output in development.
func newLogger(w io.Writer, env string) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	}
	return zerolog.New(w).With().Timestamp().Logger()
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	return db.NewPool(ctx, db.PoolConfig{
		URL:              cfg.DatabaseURL,
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		StatementTimeout: cfg.DBStatementTimeout,
	})
}

// newDocumentService assembles the document engine over src.
func newDocumentService(cfg *config.Config, src ccda.DataSource, log zerolog.Logger) *ccda.Service {
	builder := ccda.NewBuilder(ccda.UUIDGenerator, cfg.OrgOID, log)
	composer := ccda.NewComposer(builder, ccda.UUIDGenerator, ccda.OrgInfo{
		Name:         cfg.OrgName,
		OID:          cfg.OrgOID,
		SoftwareName: cfg.SoftwareName,
	})
	extractor := ccda.NewExtractor(log, cfg.OrgOID, cfg.StrictDates)
	return ccda.NewService(src, composer, extractor, log)
}

func newChartSource(pool *pgxpool.Pool) *chart.Source {
	return chart.NewSource(chart.NewRepo(pool))
}

func jwtConfig(cfg *config.Config) (auth.JWTConfig, error) {
	jc := auth.JWTConfig{
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
		JWKSURL:  cfg.AuthJWKSURL,
	}
	if cfg.AuthSigningKey != "" {
		key, err := hex.DecodeString(cfg.AuthSigningKey)
		if err != nil {
			return jc, fmt.Errorf("decode AUTH_SIGNING_KEY: %w", err)
		}
		jc.SigningKey = key
	}
	return jc, nil
}

// readInput reads the named file, or stdin for "-".
func readInput(name string, stdin io.Reader) ([]byte, error) {
	if name == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(name)
}
