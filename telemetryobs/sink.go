// Package telemetryobs is the reference swarmcore.ObservabilitySink:
// it turns every runtime Event into a zero-length OpenTelemetry span
// carrying the event's component and fields as attributes, exported
// over OTLP/gRPC, with a stdout exporter used only when the OTLP
// exporter cannot be constructed — the same batching/global-
// provider wiring the teacher's telemetry.OTelProvider uses, adapted
// from HTTP exporters to the gRPC + stdout pair this module actually
// depends on.
package telemetryobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// Sink implements swarmcore.ObservabilitySink over an OpenTelemetry
// TracerProvider. Each Emit opens and immediately ends a zero-length
// span carrying the event's fields as attributes, which is enough to
// get the event into any span-based backend without requiring the
// caller to thread a parent span through every component.
type Sink struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider

	mu       sync.RWMutex
	shutdown bool
}

// NewSink builds a Sink exporting to an OTLP/gRPC collector at
// endpoint (default "localhost:4317"). The OTLP exporter connects
// lazily, so NewSink does not detect an unreachable collector; the
// stdout exporter is used only if the OTLP exporter cannot be built.
func NewSink(ctx context.Context, serviceName, endpoint string) (*Sink, error) {
	if serviceName == "" {
		return nil, fmt.Errorf("telemetryobs: service name is required")
	}
	if endpoint == "" {
		endpoint = "localhost:4317"
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	exporter, err := newExporter(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("telemetryobs: building exporter for %s: %w", endpoint, err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return &Sink{tracer: tp.Tracer("swarmkit/coordinator"), provider: tp}, nil
}

// newExporter builds the OTLP/gRPC exporter, bounding construction by a
// short timeout, and falls back to stdouttrace if construction fails.
// No connection to the collector is made here.
func newExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	dialCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	exp, err := otlptracegrpc.New(dialCtx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err == nil {
		return exp, nil
	}
	return stdouttrace.New(stdouttrace.WithPrettyPrint())
}

// Emit implements swarmcore.ObservabilitySink. It is best-effort: a
// shutdown or nil-tracer sink silently drops the event rather than
// blocking or erroring the caller.
func (s *Sink) Emit(ctx context.Context, event swarmcore.Event) {
	s.mu.RLock()
	down := s.shutdown
	s.mu.RUnlock()
	if down || s.tracer == nil {
		return
	}

	attrs := make([]attribute.KeyValue, 0, len(event.Fields)+1)
	attrs = append(attrs, attribute.String("component", event.Component))
	for k, v := range event.Fields {
		attrs = append(attrs, attribute.String(k, fmt.Sprintf("%v", v)))
	}

	_, span := s.tracer.Start(ctx, event.Name, trace.WithAttributes(attrs...))
	span.End()
}

// Shutdown flushes and closes the underlying TracerProvider. Safe to
// call more than once.
func (s *Sink) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.shutdown {
		s.mu.Unlock()
		return nil
	}
	s.shutdown = true
	s.mu.Unlock()
	return s.provider.Shutdown(ctx)
}
