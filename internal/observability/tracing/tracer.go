package tracing

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "infopulse"

// GetTracer resolves the tracer from the global provider on every call,
// so a provider installed after package init is honored.
//
//	ctx, span := tracing.GetTracer().Start(ctx, "ingest.run")
//	defer span.End()
func GetTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// Fail records err on span and marks it failed with a short status description.
// A nil err leaves the span untouched.
func Fail(span trace.Span, err error, description string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, description)
}
