// Package swarmcore provides the foundational types shared by every
// component of the coordination runtime: identifiers, the logging
// interface, and the observability sink contract that keeps the core
// decoupled from any particular tracing or metrics backend.
package swarmcore

import (
	"context"

	"github.com/google/uuid"
)

// ID is an opaque 128-bit identifier shared by every entity in the
// runtime (intents, steps, promises, contexts, proofs, checkpoints).
type ID = uuid.UUID

// NewID returns a fresh random identifier.
func NewID() ID {
	return uuid.New()
}

// ParseID parses a canonical string form of an ID.
func ParseID(s string) (ID, error) {
	return uuid.Parse(s)
}

// Logger is the structured logging contract used throughout the
// runtime. Fields are passed as a flat map so implementations can
// render them however they like (key=value, JSON, ...).
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})

	DebugWithContext(ctx context.Context, msg string, fields map[string]interface{})
	InfoWithContext(ctx context.Context, msg string, fields map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, fields map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, fields map[string]interface{})
}

// ComponentAwareLogger produces a child Logger tagged with a component
// name. The resilience package tags its loggers "framework/resilience".
type ComponentAwareLogger interface {
	Logger
	WithComponent(component string) Logger
}

// Event is a single observability event emitted by a component
// transition (intent status change, proof produced, trust updated,
// circuit breaker state change, ...). The runtime never depends on
// whether the sink actually records it.
type Event struct {
	Component string
	Name      string
	Fields    map[string]interface{}
}

// ObservabilitySink receives best-effort, non-blocking events. Dropping
// an event is always an acceptable outcome; no core logic may depend on
// acceptance.
type ObservabilitySink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink discards every event. It is the default when no sink is
// configured.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}
