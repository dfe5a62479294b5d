package graph

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
)

// Module provides the graph HTTP surface.
var Module = fx.Module("graph",
	fx.Provide(newService),
	fx.Provide(NewHandler),
	fx.Invoke(RegisterRoutes),
)

func newService(store graphstore.Store, cfg *config.Config, log *slog.Logger) *Service {
	return NewService(store, log, WithTimeout(cfg.Bacon.QueryTimeout))
}
