package resilience

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// RetryExecutor runs the same attempt/backoff loop as Retry (without
// calling it) with structured logging, following the same
// config-plus-logger shape as CircuitBreaker. telemetryEnabled is set
// by CreateRetryExecutor when a sink is supplied; Execute reports
// nothing to the sink.
type RetryExecutor struct {
	config           *RetryConfig
	logger           swarmcore.Logger
	telemetryEnabled bool
}

// NewRetryExecutor builds a RetryExecutor. A nil config falls back to
// DefaultRetryConfig.
func NewRetryExecutor(config *RetryConfig) *RetryExecutor {
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryExecutor{config: config, logger: swarmcore.NoOpLogger{}}
}

// SetLogger injects a logger, replacing the no-op default.
func (e *RetryExecutor) SetLogger(logger swarmcore.Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// Execute runs fn under this executor's RetryConfig, logging the
// start, each backoff wait, and the terminal outcome under
// "retry_operation" so callers can filter logs per named operation.
func (e *RetryExecutor) Execute(ctx context.Context, operation string, fn func() error) error {
	e.logger.Info("Starting retry operation", map[string]interface{}{
		"operation":       "retry_start",
		"retry_operation": operation,
		"max_attempts":    e.config.MaxAttempts,
		"initial_delay":   e.config.InitialDelay.String(),
		"backoff_factor":  e.config.BackoffFactor,
	})

	var lastErr error
	delay := e.config.InitialDelay

	for attempt := 1; attempt <= e.config.MaxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := fn(); err == nil {
			e.logger.Info("retry operation succeeded", map[string]interface{}{
				"operation":       "retry_success",
				"retry_operation": operation,
				"attempt":         attempt,
			})
			return nil
		} else {
			lastErr = err
			e.logger.Debug("retry attempt failed", map[string]interface{}{
				"operation":       "retry_attempt_failed",
				"retry_operation": operation,
				"attempt":         attempt,
				"error":           err.Error(),
			})
		}

		if attempt == e.config.MaxAttempts {
			break
		}

		if attempt > 1 {
			delay = time.Duration(float64(delay) * e.config.BackoffFactor)
			if delay > e.config.MaxDelay {
				delay = e.config.MaxDelay
			}
		}
		if e.config.JitterEnabled {
			jitter := time.Duration(float64(delay) * 0.1 * math.Sin(float64(attempt)))
			delay += jitter
		}

		e.logger.Debug("backing off before next retry attempt", map[string]interface{}{
			"operation":       "retry_backoff",
			"retry_operation": operation,
			"attempt":         attempt,
			"delay_ms":        delay.Milliseconds(),
		})

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	err := fmt.Errorf("max retry attempts (%d) exceeded for %s: %w", e.config.MaxAttempts, operation, lastErr)
	e.logger.Error("retry operation exhausted all attempts", map[string]interface{}{
		"operation":       "retry_exhausted",
		"retry_operation": operation,
		"attempts":        e.config.MaxAttempts,
		"error":           lastErr.Error(),
	})
	return err
}
