// Package cli provides the initialization steps shared by cmd/occupancy,
// cmd/occupancy-worker and cmd/occupancy-report.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"occupancy/internal/config"
	"occupancy/internal/log"
	"occupancy/internal/storage"
)

// SetupLogger builds the process logger for the given LOG_LEVEL value and
// installs it as the slog default. Unknown levels fall back to info.
func SetupLogger(level string) *log.Logger {
	return setupLogger(os.Stdout, level)
}

func setupLogger(w io.Writer, level string) *log.Logger {
	lvl, err := config.ParseLogLevel(level)
	logger := log.New(log.Config{
		Level:   lvl,
		Handler: slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info log level", "error", err)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// A missing file is not an error.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

// LoadAndValidateConfig loads configuration from the environment and
// validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// InitSQLite opens the SQLite repository at dbPath, applying migrations.
func InitSQLite(logger *log.Logger, dbPath string) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(dbPath)
	if err != nil {
		return nil, fmt.Errorf("init sqlite at %s: %w", dbPath, err)
	}
	logger.WithComponent(log.ComponentStorage).Info("SQLite repository ready", "path", dbPath)
	return repo, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// Fatal logs err and exits with status 1.
func Fatal(logger *log.Logger, msg string, err error) {
	logger.Error(msg, log.FieldError, err)
	os.Exit(1)
}
