// Package tracing provides the shared OTel tracer for domain packages.
//
// Without a registered TracerProvider the global no-op provider is used, so
// spans cost nothing in tests and in deployments without a collector.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "kevinbacon"

// Start opens a span as a child of the span in ctx. The caller must End it.
//
//	ctx, span := tracing.Start(ctx, "bacon.find",
//	    attribute.String("bacon.actor_id", actorID),
//	)
//	defer span.End()
func Start(ctx context.Context, spanName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, spanName, trace.WithAttributes(attrs...))
}
