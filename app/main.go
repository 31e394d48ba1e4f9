package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/lysyi3m/watch-history/app/api"
	"github.com/lysyi3m/watch-history/app/cfg"
	"github.com/lysyi3m/watch-history/app/database"
	"github.com/lysyi3m/watch-history/app/history"
	"github.com/lysyi3m/watch-history/app/importer"
	"github.com/lysyi3m/watch-history/app/logger"
)

type app struct {
	router   *gin.Engine
	importer *importer.Importer
}

func main() {
	config, err := cfg.Load(os.Args[1:])
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if config == nil {
		return
	}

	slog.SetDefault(logger.New(os.Stderr, config.LogFormat, config.Debug))

	slog.Info("Starting Watch History server", "version", config.Version)

	db, err := database.NewConnection(config.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", config.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("Connected to database", "path", config.DBPath)

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database schema ready", "version", version, "dirty", dirty)

	application, err := build(config, db)
	if err != nil {
		slog.Error("Failed to initialise application", "error", err)
		os.Exit(1)
	}

	if config.SeedFile != "" {
		seed(application.importer, config.SeedFile)
	}

	httpServer := &http.Server{
		Addr:         net.JoinHostPort(config.Host, config.Port),
		Handler:      application.router,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig)
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	slog.Info("Watch History server shutdown complete")
}

// build composes every component from the configuration and an open database.
func build(config *cfg.Cfg, db *database.DB) (*app, error) {
	policy, err := importer.ParsePolicy(config.OnConflict)
	if err != nil {
		return nil, err
	}

	historyRepo := database.NewHistoryRepository(db)
	statsRepo := database.NewStatsRepository(db)

	imp := importer.NewImporter(history.NewParser(), historyRepo, policy, config.ImportBatchSize)
	handler := api.NewHandler(config, historyRepo, statsRepo, imp)

	return &app{
		router:   api.NewServer(handler, config.PublicDir),
		importer: imp,
	}, nil
}

// seed imports a Takeout file on startup. An existing history is left alone
// under the reject policy.
func seed(imp *importer.Importer, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		slog.Error("Failed to read seed file", "path", path, "error", err)
		return
	}

	result, err := imp.Run(context.Background(), data)
	switch {
	case errors.Is(err, importer.ErrAlreadyHasData):
		slog.Info("Seed skipped, history already present", "path", path, "policy", imp.Policy())
	case err != nil:
		slog.Error("Seed import failed", "path", path, "error", err)
	default:
		slog.Info("Seed import completed", "path", path, "inserted", result.Inserted)
	}
}
