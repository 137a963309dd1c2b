// Command main is the entry point for the Townsquare API server.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"townsquare/internal/config"
	"townsquare/internal/middleware"
	"townsquare/internal/observability"
	"townsquare/internal/server"
)

// @title Townsquare API
// @version 1.0
// @description Social feed API with accounts, profiles, text and image posts.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8375
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSamplerRatio,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		middleware.Logger.Info("shutting down server", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			middleware.Logger.Error("server stopped", slog.String("error", err.Error()))
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		middleware.Logger.Error("server resource shutdown error", slog.String("error", err.Error()))
	}
	if err := shutdownTracing(ctx); err != nil {
		middleware.Logger.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
}
