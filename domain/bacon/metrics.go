package bacon

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Query kinds used as the "kind" label.
const (
	KindNumber = "number"
	KindPath   = "path"
)

type Metrics struct {
	queries  *prometheus.CounterVec
	duration *prometheus.HistogramVec
	visited  prometheus.Histogram
}

// NewMetrics registers the Bacon query collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bacon_queries_total",
			Help: "Bacon number and path queries by kind and outcome.",
		}, []string{"kind", "outcome"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bacon_query_duration_seconds",
			Help:    "Time to answer a Bacon query.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 4, 10),
		}, []string{"kind"}),
		visited: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bacon_search_frontier_nodes",
			Help:    "Actor and movie nodes visited by one search.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 12),
		}),
	}
}

// observe records one answered query. outcome is an Outcome string or "error".
func (m *Metrics) observe(kind, outcome string, elapsed time.Duration) {
	m.queries.WithLabelValues(kind, outcome).Inc()
	m.duration.WithLabelValues(kind).Observe(elapsed.Seconds())
}
