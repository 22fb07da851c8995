// Command migrate applies the embedded schema migrations and exits.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"studentrecords/internal/config"
	"studentrecords/internal/logging"
	"studentrecords/internal/store"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("migration failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.App, logger *slog.Logger) error {
	db, err := store.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.Migrate(ctx, db.Client); err != nil {
		return err
	}
	logger.Info("migrations applied")
	return nil
}
