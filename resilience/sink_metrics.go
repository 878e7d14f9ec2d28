package resilience

import (
	"context"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// SinkMetrics adapts a swarmcore.ObservabilitySink into a
// MetricsCollector, so a CircuitBreaker's state transitions and
// outcomes flow through the same best-effort event sink as the rest
// of the runtime instead of a bespoke metrics API.
type SinkMetrics struct {
	Sink      swarmcore.ObservabilitySink
	Component string // defaults to "resilience/circuit_breaker" if empty
}

// NewSinkMetrics builds a MetricsCollector over sink.
func NewSinkMetrics(sink swarmcore.ObservabilitySink) *SinkMetrics {
	return &SinkMetrics{Sink: sink, Component: "resilience/circuit_breaker"}
}

func (m *SinkMetrics) component() string {
	if m.Component != "" {
		return m.Component
	}
	return "resilience/circuit_breaker"
}

func (m *SinkMetrics) emit(name string, fields map[string]interface{}) {
	if m.Sink == nil {
		return
	}
	m.Sink.Emit(context.Background(), swarmcore.Event{
		Component: m.component(),
		Name:      name,
		Fields:    fields,
	})
}

// RecordSuccess implements MetricsCollector.
func (m *SinkMetrics) RecordSuccess(name string) {
	m.emit("circuit_breaker.success", map[string]interface{}{"name": name})
}

// RecordFailure implements MetricsCollector.
func (m *SinkMetrics) RecordFailure(name string, errorType string) {
	m.emit("circuit_breaker.failure", map[string]interface{}{"name": name, "error_type": errorType})
}

// RecordStateChange implements MetricsCollector.
func (m *SinkMetrics) RecordStateChange(name string, from, to string) {
	m.emit("circuit_breaker.state_change", map[string]interface{}{"name": name, "from": from, "to": to})
}

// RecordRejection implements MetricsCollector.
func (m *SinkMetrics) RecordRejection(name string) {
	m.emit("circuit_breaker.rejected", map[string]interface{}{"name": name})
}
