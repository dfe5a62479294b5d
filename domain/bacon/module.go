package bacon

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
)

var Module = fx.Module("bacon",
	fx.Provide(
		NewMetrics,
		newFinder,
		NewHandler,
	),
	fx.Invoke(RegisterRoutes),
)

func newFinder(store graphstore.Store, cfg *config.Config, m *Metrics, log *slog.Logger) *Finder {
	return NewFinder(store, cfg.Bacon.ReferenceActorID,
		WithTimeout(cfg.Bacon.QueryTimeout),
		WithBatchSize(cfg.Bacon.BatchSize),
		WithMetrics(m),
		WithLogger(log),
	)
}
