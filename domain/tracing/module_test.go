package tracing_test

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx/fxtest"

	"github.com/emergent-company/kevinbacon/domain/tracing"
	"github.com/emergent-company/kevinbacon/internal/config"
)

func TestNewExporter_DisabledWithoutEndpoint(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	exp, err := tracing.NewExporter(lc, &config.Config{}, slog.Default())
	require.NoError(t, err)
	assert.Nil(t, exp.Provider)
	assert.IsType(t, noop.TracerProvider{}, otel.GetTracerProvider())
}

func TestNewExporter_Enabled(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	cfg := &config.Config{Otel: config.OtelConfig{
		ExporterEndpoint: "http://127.0.0.1:4318",
		ServiceName:      "kevinbacon-test",
		SamplingRate:     0,
	}}
	exp, err := tracing.NewExporter(lc, cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, exp.Provider)
	assert.Same(t, exp.Provider, otel.GetTracerProvider())

	e := echo.New()
	tracing.Install(e, exp, cfg)
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	lc.RequireStart()
	lc.RequireStop()
	otel.SetTracerProvider(noop.NewTracerProvider())
}

func TestSampler(t *testing.T) {
	assert.Equal(t, "AlwaysOnSampler", tracing.Sampler(1).Description())
	assert.Contains(t, tracing.Sampler(0.25).Description(), "ParentBased")
}

func TestSkip(t *testing.T) {
	e := echo.New()
	for path, want := range map[string]bool{
		"/health":                    true,
		"/metrics":                   true,
		"/api/v1/computeBaconNumber": false,
	} {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, path, nil), httptest.NewRecorder())
		assert.Equal(t, want, tracing.Skip(c), path)
	}
}
