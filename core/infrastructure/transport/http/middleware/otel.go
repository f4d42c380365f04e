package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// untracedPaths are probed constantly and never traced
var untracedPaths = map[string]bool{
	"/heartbeat": true,
	"/metrics":   true,
}

// Tracing starts a server span per API request. Spans are named by chi
// route pattern once routing has run, so project and job ids stay out of
// span names.
func Tracing(next http.Handler) http.Handler {
	renamed := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r)
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				spanFromRequest(r).SetName(r.Method + " " + pattern)
			}
		}
	})

	return otelhttp.NewHandler(
		renamed,
		"semlayer.http",
		otelhttp.WithPropagators(otel.GetTextMapPropagator()),
		otelhttp.WithTracerProvider(otel.GetTracerProvider()),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return !untracedPaths[r.URL.Path]
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func spanFromRequest(r *http.Request) trace.Span {
	return trace.SpanFromContext(r.Context())
}
