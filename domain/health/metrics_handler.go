package health

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

// Registry is the process metric registry. Collectors register through
// Registerer; /metrics reads through Gatherer.
type Registry struct {
	fx.Out

	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRegistry creates a registry carrying the Go runtime and process collectors.
func NewRegistry() Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return Registry{Registerer: reg, Gatherer: reg}
}

// MetricsHandler serves the Prometheus exposition format.
type MetricsHandler struct {
	handler echo.HandlerFunc
}

func NewMetricsHandler(g prometheus.Gatherer) *MetricsHandler {
	return &MetricsHandler{
		handler: echo.WrapHandler(promhttp.HandlerFor(g, promhttp.HandlerOpts{})),
	}
}

func (m *MetricsHandler) Metrics(c echo.Context) error {
	return m.handler(c)
}
