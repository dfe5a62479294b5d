// Package store opens the graph backend selected by STORE_BACKEND and ties it
// to the application lifecycle.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
	"github.com/emergent-company/kevinbacon/internal/graphstore/badgerstore"
	"github.com/emergent-company/kevinbacon/internal/graphstore/neo4jstore"
	"github.com/emergent-company/kevinbacon/internal/graphstore/pgstore"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

var Module = fx.Module("store",
	fx.Provide(NewStore),
)

// Open opens the configured backend. The caller must Close it.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger, zl *zap.Logger) (graphstore.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendMemory:
		return graphstore.NewMemoryStore(cfg.Store.LockShards, log), nil
	case config.BackendBadger:
		return badgerstore.Open(badgerstore.Config{
			Path:       cfg.Badger.Path,
			InMemory:   cfg.Badger.InMemory,
			SyncWrites: cfg.Badger.SyncWrites,
			GCInterval: cfg.Badger.GCInterval,
			Logger:     log,
		})
	case config.BackendPostgres:
		return pgstore.Open(ctx, cfg.Database, log, zl)
	case config.BackendNeo4j:
		return neo4jstore.Open(ctx, cfg.Neo4j, log)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// NewStore opens the backend, instruments it and closes it on shutdown.
func NewStore(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger, zl *zap.Logger, reg prometheus.Registerer) (graphstore.Store, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	backend, err := Open(ctx, cfg, log, zl)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}

	log = log.With(logger.Scope("store"))
	log.Info("graph store ready", slog.String("backend", cfg.Store.Backend))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing graph store")
			return backend.Close()
		},
	})

	return graphstore.Instrument(backend, graphstore.NewMetrics(reg), log), nil
}
