// Package tracing provides OpenTelemetry tracing integration.
//
// Spans are emitted through the global tracer provider: one per ingestion run,
// one per article extraction, and one client span per outbound HTTP request made
// through Transport. Without an SDK provider installed the spans are no-ops.
package tracing
