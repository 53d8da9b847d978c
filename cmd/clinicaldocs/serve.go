package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicaldocs/internal/config"
	"github.com/ehr/clinicaldocs/internal/platform/auth"
	"github.com/ehr/clinicaldocs/internal/platform/ccda"
	"github.com/ehr/clinicaldocs/internal/platform/db"
	"github.com/ehr/clinicaldocs/internal/platform/middleware"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the document API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

// serverDeps are the collaborators newServer wires into routes.
type serverDeps struct {
	svc      *ccda.Service
	snapshot db.TxBeginner
	health   echo.HandlerFunc
}

func newServer(cfg *config.Config, deps serverDeps, logger zerolog.Logger) (*echo.Echo, error) {
	limit, err := middleware.ParseSize(cfg.MaxDocumentSize)
	if err != nil {
		return nil, fmt.Errorf("MAX_DOCUMENT_SIZE: %w", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))

	e.GET("/health/db", deps.health)

	authMW := auth.DevAuthMiddleware()
	if !cfg.IsDev() {
		jc, err := jwtConfig(cfg)
		if err != nil {
			return nil, err
		}
		authMW = auth.JWTMiddleware(jc)
	}

	api := e.Group("/api/v1",
		authMW,
		auth.RequireRole(auth.RoleClinician, auth.RoleIntegration),
		middleware.BodyLimit(limit),
	)
	ccda.NewHandler(deps.svc, logger).RegisterRoutes(api, db.SnapshotMiddleware(deps.snapshot))

	return e, nil
}

func runServer() error {
	logger := newLogger(os.Stdout, os.Getenv("ENV"))

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.ValidateServe(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}
	if cfg.IsDev() {
		logger.Warn().Msg("development mode: every request is authenticated as admin")
	}

	ctx := context.Background()
	pool, err := openPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	svc := newDocumentService(cfg, newChartSource(pool), logger)
	e, err := newServer(cfg, serverDeps{svc: svc, snapshot: pool, health: db.HealthHandler(pool)}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("org_oid", cfg.OrgOID).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
