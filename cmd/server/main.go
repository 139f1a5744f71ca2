// Command main is the entry point for the ShutterHub backend server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shutterhub/internal/config"
	"shutterhub/internal/middleware"
	"shutterhub/internal/observability"
	"shutterhub/internal/server"
)

// @title ShutterHub API
// @version 1.0
// @description Photography community API: gallery, forum, verified marketplace, messages and notifications
// @termsOfService http://swagger.io/terms/

// @contact.name API Support
// @contact.email support@shutterhub.dev

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

const shutdownGrace = 10 * time.Second

func main() {
	if err := run(); err != nil {
		middleware.Logger.Error("server exited", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	stopTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "shutterhub-api",
		ServiceVersion: version,
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampleRatio,
	})
	if err != nil {
		// A broken exporter must not keep the API down.
		middleware.Logger.Warn("tracing disabled", slog.String("error", err.Error()))
		stopTracing = func(context.Context) error { return nil }
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()
	middleware.Logger.Info("shutterhub api starting", slog.String("version", version), slog.String("env", cfg.Env))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	middleware.Logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		middleware.Logger.Error("server shutdown", slog.String("error", err.Error()))
	}
	if err := stopTracing(shutdownCtx); err != nil {
		middleware.Logger.Error("tracer shutdown", slog.String("error", err.Error()))
	}
	return nil
}
