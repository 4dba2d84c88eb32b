package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/oedatamodel/internal/config"
	"github.com/JonMunkholm/oedatamodel/internal/logging"
	"github.com/JonMunkholm/oedatamodel/internal/mapping"
	"github.com/JonMunkholm/oedatamodel/internal/metrics"
	"github.com/JonMunkholm/oedatamodel/internal/web"
)

func main() {
	// Overload lets a local .env win over the inherited environment
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded", "config", cfg.String())

	loader := mapping.NewDirLoader(cfg.Mapping.Dir)
	if names, err := loader.Names(); err != nil {
		slog.Warn("cannot list custom mappings", "dir", cfg.Mapping.Dir, "error", err)
	} else {
		slog.Info("custom mappings available", "dir", cfg.Mapping.Dir, "count", len(names))
	}

	server := web.NewServer(cfg, mapping.New(loader), loader, metrics.New())

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}
