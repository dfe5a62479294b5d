package graphstore

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/emergent-company/kevinbacon/pkg/logger"
)

// Metrics counts store mutations by outcome and store failures by operation.
type Metrics struct {
	mutations *prometheus.CounterVec
	failures  *prometheus.CounterVec
}

// NewMetrics registers the store collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphstore_mutations_total",
			Help: "Graph mutations by operation and result.",
		}, []string{"op", "result"}),
		failures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "graphstore_errors_total",
			Help: "Store operations that failed with a StoreError.",
		}, []string{"op"}),
	}
}

// Instrument wraps s so that mutations are counted and store failures are
// counted and logged. Reads pass straight through.
func Instrument(s Store, m *Metrics, log *slog.Logger) Store {
	return &instrumented{Store: s, m: m, log: log.With(logger.Scope("graphstore"))}
}

type instrumented struct {
	Store
	m   *Metrics
	log *slog.Logger
}

func (i *instrumented) fail(op string, err error) {
	i.m.failures.WithLabelValues(op).Inc()
	i.log.Error("store operation failed", slog.String("op", op), logger.Error(err))
}

func (i *instrumented) AddActor(ctx context.Context, name, actorID string) (bool, error) {
	created, err := i.Store.AddActor(ctx, name, actorID)
	if err != nil {
		i.fail("add_actor", err)
		return false, err
	}
	i.m.mutations.WithLabelValues("add_actor", strconv.FormatBool(created)).Inc()
	return created, nil
}

func (i *instrumented) AddMovie(ctx context.Context, name, movieID string) (bool, error) {
	created, err := i.Store.AddMovie(ctx, name, movieID)
	if err != nil {
		i.fail("add_movie", err)
		return false, err
	}
	i.m.mutations.WithLabelValues("add_movie", strconv.FormatBool(created)).Inc()
	return created, nil
}

func (i *instrumented) AddRelationship(ctx context.Context, actorID, movieID string) (LinkOutcome, error) {
	outcome, err := i.Store.AddRelationship(ctx, actorID, movieID)
	if err != nil {
		i.fail("add_relationship", err)
		return outcome, err
	}
	i.m.mutations.WithLabelValues("add_relationship", outcome.String()).Inc()
	return outcome, nil
}

func (i *instrumented) Reset(ctx context.Context) error {
	if err := i.Store.Reset(ctx); err != nil {
		i.fail("reset", err)
		return err
	}
	i.m.mutations.WithLabelValues("reset", "true").Inc()
	i.log.Warn("graph reset")
	return nil
}
