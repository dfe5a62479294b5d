package tracing

import (
	"context"
	"log/slog"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	"github.com/emergent-company/kevinbacon/internal/config"
	"github.com/emergent-company/kevinbacon/internal/version"
	"github.com/emergent-company/kevinbacon/pkg/logger"
)

// Module sets the global TracerProvider used by pkg/tracing and, when an
// OTLP endpoint is configured, instruments every request.
var Module = fx.Module("tracing",
	fx.Provide(NewExporter),
	fx.Invoke(Install),
)

// Exporter owns the SDK provider. Provider is nil when tracing is off.
type Exporter struct {
	Provider *sdktrace.TracerProvider
}

// untraced are health and scrape routes hit often enough to drown real traffic.
var untraced = map[string]bool{
	"/health":  true,
	"/healthz": true,
	"/ready":   true,
	"/metrics": true,
}

// NewExporter builds the OTLP pipeline, or nothing when no endpoint is set.
// Either way the resulting provider is registered globally.
func NewExporter(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*Exporter, error) {
	oc := cfg.Otel
	log = log.With(logger.Scope("tracing"))

	if !oc.Enabled() {
		otel.SetTracerProvider(noop.NewTracerProvider())
		log.Info("tracing disabled")
		return &Exporter{}, nil
	}

	exp, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpointURL(oc.ExporterEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(serviceResource(oc.ServiceName, log)),
		sdktrace.WithSampler(Sampler(oc.SamplingRate)),
	)
	otel.SetTracerProvider(tp)
	log.Info("tracing enabled",
		slog.String("endpoint", oc.ExporterEndpoint),
		slog.Float64("sampling_rate", oc.SamplingRate),
	)

	lc.Append(fx.StopHook(func(ctx context.Context) error {
		log.Info("flushing spans")
		return tp.Shutdown(ctx)
	}))
	return &Exporter{Provider: tp}, nil
}

func serviceResource(name string, log *slog.Logger) *resource.Resource {
	res, err := resource.New(context.Background(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(name),
			semconv.ServiceVersion(version.Version),
		),
		resource.WithFromEnv(),
		resource.WithProcess(),
	)
	if err != nil {
		log.Warn("resource detection failed", logger.Error(err))
		return resource.Empty()
	}
	return res
}

// Sampler keeps every trace at rate >= 1 and otherwise samples roots by
// trace id, following the parent's decision for child spans.
func Sampler(rate float64) sdktrace.Sampler {
	if rate >= 1 {
		return sdktrace.AlwaysSample()
	}
	return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(rate))
}

// Install adds the otelecho middleware when tracing is on.
func Install(e *echo.Echo, exp *Exporter, cfg *config.Config) {
	if exp.Provider == nil {
		return
	}
	e.Use(otelecho.Middleware(cfg.Otel.ServiceName,
		otelecho.WithTracerProvider(exp.Provider),
		otelecho.WithSkipper(Skip),
	))
}

// Skip reports whether a request is left out of tracing.
func Skip(c echo.Context) bool {
	return untraced[c.Request().URL.Path]
}
