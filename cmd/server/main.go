// Package main is the entry point for the portfolio API server.
//
// MAIN PACKAGE IN GO:
// The main package should be kept minimal. Its job is to:
//  1. Read configuration (config.yaml, PORTFOLIO_* env vars, defaults)
//  2. Create dependencies (logger, stores, services)
//  3. Start the application
//
// All actual logic lives in imported packages (internal/app, internal/server,
// internal/service, ...).
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/sakif/portfolio/internal/app"
	"github.com/sakif/portfolio/internal/config"
	"github.com/sakif/portfolio/internal/server"
)

func main() {
	// === 1. READ CONFIGURATION ===
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	// Text logs for people in development, JSON for log shippers in production.
	logger := app.NewLogger(cfg, os.Stdout)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// === 3. BUILD STORES AND SERVICES ===
	// Mock mode seeds an in-memory store; a configured backend takes over
	// comments, likes and view counts.
	a, err := app.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("failed to build application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger.Info("application ready",
		slog.String("mode", a.Mode),
		slog.String("env", cfg.App.Env),
		slog.Bool("views", a.Views.Configured()),
		slog.Bool("oauth", cfg.OAuthConfigured()),
	)

	// === 4. CREATE AND START THE SERVER ===
	srv := server.New(server.Config{
		Port:           cfg.Server.Port,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		SecureCookies:  cfg.IsProduction(),
	}, a.Services(), logger, a.Closers()...)

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
