// Command migrate applies the embedded schema migrations to the configured stores.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.uber.org/zap"

	"transwise/internal/config"
	"transwise/internal/logger"
	"transwise/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	err = run(cfg, lg)
	if err != nil {
		lg.Error("migration failed", zap.Error(err))
	}
	_ = lg.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *zap.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	stores, err := store.Open(ctx, cfg, lg)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	if err := stores.Migrate(ctx); err != nil {
		return err
	}
	lg.Info("migrations complete")
	return nil
}
