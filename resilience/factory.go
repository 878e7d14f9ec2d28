package resilience

import (
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// ResilienceDependencies holds a CircuitBreaker/RetryExecutor's
// optional collaborators: a logger and an observability sink.
type ResilienceDependencies struct {
	Logger swarmcore.Logger
	Sink   swarmcore.ObservabilitySink
}

// CreateCircuitBreaker creates a circuit breaker with dependency
// injection: a supplied ComponentAwareLogger is scoped to
// "framework/resilience", a default production logger is used if none
// is supplied, and a SinkMetrics collector is wired to Sink if one is
// supplied.
func CreateCircuitBreaker(name string, deps ResilienceDependencies) (*CircuitBreaker, error) {
	config := DefaultConfig()
	config.Name = name

	if deps.Logger != nil {
		if cal, ok := deps.Logger.(swarmcore.ComponentAwareLogger); ok {
			config.Logger = cal.WithComponent("framework/resilience")
		} else {
			config.Logger = deps.Logger
		}
	} else {
		config.Logger = swarmcore.NewSimpleLogger().WithComponent("framework/resilience")
	}

	if deps.Sink != nil {
		config.Metrics = NewSinkMetrics(deps.Sink)
		config.Logger.Info("Observability sink enabled for circuit breaker", map[string]interface{}{
			"operation": "sink_integration",
			"name":      name,
			"component": "circuit_breaker",
		})
	}

	config.Logger.Info("Creating circuit breaker", map[string]interface{}{
		"operation":        "circuit_breaker_creation",
		"name":             name,
		"error_threshold":  config.ErrorThreshold,
		"volume_threshold": config.VolumeThreshold,
	})

	return NewCircuitBreaker(config)
}

// CreateRetryExecutor creates a retry executor with dependency
// injection: a supplied ComponentAwareLogger is scoped to
// "framework/resilience", and a default production logger is used if
// none is supplied.
func CreateRetryExecutor(deps ResilienceDependencies) *RetryExecutor {
	executor := NewRetryExecutor(nil)

	if deps.Logger != nil {
		if cal, ok := deps.Logger.(swarmcore.ComponentAwareLogger); ok {
			executor.SetLogger(cal.WithComponent("framework/resilience"))
		} else {
			executor.SetLogger(deps.Logger)
		}
	} else {
		executor.SetLogger(swarmcore.NewSimpleLogger().WithComponent("framework/resilience"))
	}

	if deps.Sink != nil {
		executor.telemetryEnabled = true
		executor.logger.Info("Observability sink enabled for retry executor", map[string]interface{}{
			"operation": "sink_integration",
			"component": "retry_executor",
		})
	}

	return executor
}

// WithLogger is a dependency-injection option for ResilienceDependencies.
func WithLogger(logger swarmcore.Logger) func(*ResilienceDependencies) {
	return func(d *ResilienceDependencies) {
		d.Logger = logger
	}
}

// WithSink is a dependency-injection option for ResilienceDependencies.
func WithSink(sink swarmcore.ObservabilitySink) func(*ResilienceDependencies) {
	return func(d *ResilienceDependencies) {
		d.Sink = sink
	}
}
