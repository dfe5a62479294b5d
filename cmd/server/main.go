// Package main provides the entry point for the Bacon number API server.
//
// @title Kevin Bacon API
// @description Actor/movie graph with Bacon number and path queries.
// @BasePath /
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/kevinbacon/domain/bacon"
	"github.com/emergent-company/kevinbacon/domain/graph"
	"github.com/emergent-company/kevinbacon/domain/health"
	"github.com/emergent-company/kevinbacon/domain/tracing"
	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/server"
	"github.com/emergent-company/kevinbacon/internal/store"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

func main() {
	// .env.local overrides .env.
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure
		logger.Module,
		config.Module,
		server.Module,
		tracing.Module,
		store.Module,

		// Domain
		health.Module,
		graph.Module,
		bacon.Module,
	).Run()
}
