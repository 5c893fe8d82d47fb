// Package middleware provides HTTP middleware components for the API server.
package middleware

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
)

// Tracing wraps handlers with otelhttp instrumentation. Spans are named
// "METHOD path" (for example "POST /v1/match/rank") and trace context is
// propagated via the W3C traceparent/tracestate headers, so a ranking
// request can be followed from the dashboard through the API into the
// store. Place it after RequestID in the chain so the request ID is
// available inside the span.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName,
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	}
}

// requestSpanContext returns the span context active on the request, which
// is invalid when tracing is disabled or no span has been started.
func requestSpanContext(r *http.Request) trace.SpanContext {
	return trace.SpanContextFromContext(r.Context())
}

// GetTraceID returns the active trace ID for log correlation, or the empty
// string when no trace is active.
func GetTraceID(r *http.Request) string {
	if sc := requestSpanContext(r); sc.IsValid() {
		return sc.TraceID().String()
	}
	return ""
}

// GetSpanID returns the active span ID, or the empty string when no span
// is active.
func GetSpanID(r *http.Request) string {
	if sc := requestSpanContext(r); sc.IsValid() {
		return sc.SpanID().String()
	}
	return ""
}
