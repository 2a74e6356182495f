package main

import (
	"context"
	"fmt"

	"github.com/yndnr/qrtoken-go/internal/core/service"
	"github.com/yndnr/qrtoken-go/internal/server/config"
	"github.com/yndnr/qrtoken-go/internal/storage"
	"github.com/yndnr/qrtoken-go/internal/storage/memory"
	"github.com/yndnr/qrtoken-go/internal/storage/postgres"
	"github.com/yndnr/qrtoken-go/internal/storage/redisstore"
	"github.com/yndnr/qrtoken-go/internal/telemetry/logger"
	"github.com/yndnr/qrtoken-go/internal/telemetry/metric"
)

// tokenStore is the selected backend plus its lifecycle hooks.
type tokenStore struct {
	service.TokenStore
	close func() error
	ready func(ctx context.Context) error
}

func openStore(ctx context.Context, cfg *config.ServerConfig, registry *metric.Registry, log logger.Logger) (*tokenStore, error) {
	log = log.With("component", "storage", "backend", cfg.Storage.Backend)

	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory store, tokens are lost on restart")
		return &tokenStore{TokenStore: memory.New(), close: func() error { return nil }}, nil

	case config.BackendBadger:
		bc := storage.DefaultBadgerConfig(cfg.Storage.Badger.Dir)
		if cfg.Storage.Badger.GCInterval > 0 {
			bc.GCInterval = cfg.Storage.Badger.GCInterval
		}
		bc.SyncWrites = cfg.Storage.Badger.SyncWrites
		s, err := storage.OpenBadger(bc, log)
		if err != nil {
			return nil, err
		}
		if registry != nil {
			if err := s.RegisterMetrics(registry.Registerer()); err != nil {
				s.Close()
				return nil, err
			}
		}
		return &tokenStore{TokenStore: s, close: s.Close}, nil

	case config.BackendRedis:
		s, err := redisstore.Dial(ctx, redisstore.Config{
			Addr:      cfg.Storage.Redis.Addr,
			Password:  cfg.Storage.Redis.Password,
			DB:        cfg.Storage.Redis.DB,
			KeyPrefix: cfg.Storage.Redis.KeyPrefix,
		}, log)
		if err != nil {
			return nil, err
		}
		return &tokenStore{TokenStore: s, close: s.Close, ready: s.Ping}, nil

	case config.BackendPostgres:
		pc := postgres.DefaultConfig(cfg.Storage.Postgres.DSN)
		if cfg.Storage.Postgres.MaxOpenConns > 0 {
			pc.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
			pc.MaxIdleConns = cfg.Storage.Postgres.MaxOpenConns
		}
		s, err := postgres.Connect(ctx, pc, log)
		if err != nil {
			return nil, err
		}
		if cfg.Storage.Postgres.Migrate {
			if err := s.Migrate(ctx); err != nil {
				s.Close()
				return nil, fmt.Errorf("migrate: %w", err)
			}
		}
		return &tokenStore{TokenStore: s, close: s.Close, ready: s.Ping}, nil

	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
	}
}
