package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rickgao/ratel-client/internal/config"
	"github.com/rickgao/ratel-client/internal/database"
	"github.com/rickgao/ratel-client/internal/session"
	"github.com/rickgao/ratel-client/internal/storage/postgres"
	"github.com/rickgao/ratel-client/internal/storage/redis"
	"github.com/rickgao/ratel-client/internal/storage/sqlite"
)

// openDurable builds the snapshot backend named by cfg.Backend. The returned
// close function is never nil.
func openDurable(ctx context.Context, cfg config.SnapshotConfig, logger *slog.Logger) (session.Durable, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Backend {
	case config.BackendMemory:
		return session.NewMemory(), noop, nil

	case config.BackendFile:
		return session.NewFile(cfg.Path), noop, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.Path, cfg.Key)
		if err != nil {
			return nil, noop, err
		}
		return store, store.Close, nil

	case config.BackendRedis:
		client, err := redis.Connect(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, noop, err
		}
		store := redis.NewStore(client, cfg.Key, cfg.Freshness)
		logger.Info("redis snapshot backend", "addr", cfg.Redis.Addr, "key", store.Key())
		return store, store.Close, nil

	case config.BackendPostgres:
		pool, err := database.Connect(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		store, err := postgres.New(ctx, pool, cfg.Key)
		if err != nil {
			pool.Close()
			return nil, noop, err
		}
		logger.Info("postgres snapshot backend",
			"host", cfg.Postgres.Host,
			"database", cfg.Postgres.Name,
		)
		return store, store.Close, nil

	default:
		return nil, noop, fmt.Errorf("unknown snapshot backend %q", cfg.Backend)
	}
}
