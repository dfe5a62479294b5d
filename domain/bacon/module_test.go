package bacon

import (
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/graphstore"
)

func TestNewFinder_FromConfig(t *testing.T) {
	cfg := &config.Config{Bacon: config.BaconConfig{
		ReferenceActorID: "nm0000102",
		QueryTimeout:     3 * time.Second,
		BatchSize:        64,
	}}
	f := newFinder(graphstore.NewMemoryStore(1, slog.Default()), cfg, NewMetrics(prometheus.NewRegistry()), slog.Default())

	assert.Equal(t, "nm0000102", f.Reference())
	assert.Equal(t, 3*time.Second, f.timeout)
	assert.Equal(t, 64, f.batchSize)
}
