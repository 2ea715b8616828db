// Package observability wires optional OTLP trace export into Genkit's
// tracer provider.
//
// When an endpoint is configured, spans produced by flows, model calls, and
// tool invocations are exported over OTLP HTTP to a local collector. The
// collector handles authentication, buffering, and forwarding to whatever
// backend is in use. Tracing is best-effort: exporter failures disable
// export but never block startup.
package observability

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// serviceName appears as the trace service attribute.
const serviceName = "clausa"

// shutdownTimeout bounds the final span flush during teardown.
const shutdownTimeout = 5 * time.Second

// SetupTracing registers an OTLP HTTP exporter with Genkit's TracerProvider.
// endpoint is a host:port collector address; an empty endpoint disables
// export and returns a no-op shutdown function.
//
// Must run before genkit.Init spawns any traced work. The returned function
// flushes pending spans and should be called during application teardown.
func SetupTracing(ctx context.Context, endpoint string, logger *slog.Logger) func() {
	if endpoint == "" {
		return func() {}
	}

	// Genkit's TracerProvider reads service identity from OTEL env vars.
	// Called once during startup, before goroutines are spawned.
	if os.Getenv("OTEL_SERVICE_NAME") == "" {
		_ = os.Setenv("OTEL_SERVICE_NAME", serviceName)
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(), // local collector, no TLS
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("trace export enabled", "endpoint", endpoint)

	shutdown := tracing.TracerProvider().Shutdown
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}
