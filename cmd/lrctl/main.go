package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"transwise/internal/adapters/cli"
	"transwise/internal/app"
	"transwise/internal/auth"
	"transwise/internal/config"
	"transwise/internal/logger"
	"transwise/internal/store"
)

// backend loads config and opens stores on first use.
type backend struct {
	cfg    *config.Config
	logger *zap.Logger
	stores *store.Stores
}

func (b *backend) load() error {
	if b.cfg != nil {
		return nil
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	lg, err := logger.New(config.LogConfig{Level: cfg.Log.Level, Format: "console", Output: "stderr"})
	if err != nil {
		return err
	}
	b.cfg, b.logger = cfg, lg
	return nil
}

func (b *backend) open(ctx context.Context) (*store.Stores, error) {
	if b.stores != nil {
		return b.stores, nil
	}
	if err := b.load(); err != nil {
		return nil, err
	}
	s, err := store.Open(ctx, b.cfg, b.logger)
	if err != nil {
		return nil, err
	}
	b.stores = s
	return s, nil
}

func (b *backend) Service(ctx context.Context) (app.ApplicationService, error) {
	s, err := b.open(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewAppService(s.Counters, s.Bookings, s.Lister(), b.logger), nil
}

func (b *backend) Tokens() (*auth.JWTService, error) {
	if err := b.load(); err != nil {
		return nil, err
	}
	if b.cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret is not set")
	}
	return auth.NewJWTService(b.cfg.Auth), nil
}

func (b *backend) Migrate(ctx context.Context) error {
	s, err := b.open(ctx)
	if err != nil {
		return err
	}
	return s.Migrate(ctx)
}

func (b *backend) close() {
	if b.stores != nil {
		b.stores.Close()
	}
	if b.logger != nil {
		_ = b.logger.Sync()
	}
}

func main() {
	b := &backend{}
	err := cli.NewRootCommand(b).ExecuteContext(context.Background())
	b.close()
	if err != nil {
		os.Exit(1)
	}
}
