package coordinator

import (
	"sync"

	"github.com/synapsed-labs/swarmkit/resilience"
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// WorkerBreakers is a per-worker bank of circuit breakers, adapted
// from resilience.CircuitBreaker (the teacher's production breaker:
// sliding-window error rate, half-open probing, atomic state) rather
// than a single shared breaker — each worker's fault history must be
// isolated from every other worker's (Invariant CB-1: a worker that
// is open receives zero assignments, regardless of its siblings'
// state).
type WorkerBreakers struct {
	mu       sync.Mutex
	breakers map[string]*resilience.CircuitBreaker
	newCfg   func(workerID string) *resilience.CircuitBreakerConfig
}

// NewWorkerBreakers builds a bank using cfgFn to construct a fresh
// config per worker (so each can be named distinctly for metrics/logs).
// If cfgFn is nil, resilience.DefaultConfig is used for every worker.
func NewWorkerBreakers(cfgFn func(workerID string) *resilience.CircuitBreakerConfig) *WorkerBreakers {
	if cfgFn == nil {
		cfgFn = func(workerID string) *resilience.CircuitBreakerConfig {
			cfg := resilience.DefaultConfig()
			cfg.Name = "worker/" + workerID
			return cfg
		}
	}
	return &WorkerBreakers{breakers: map[string]*resilience.CircuitBreaker{}, newCfg: cfgFn}
}

func (b *WorkerBreakers) get(workerID string) (*resilience.CircuitBreaker, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cb, ok := b.breakers[workerID]; ok {
		return cb, nil
	}
	cb, err := resilience.NewCircuitBreaker(b.newCfg(workerID))
	if err != nil {
		return nil, err
	}
	b.breakers[workerID] = cb
	return cb, nil
}

// Allow reports whether workerID may receive a new assignment right
// now. An open breaker always returns false (Invariant CB-1).
func (b *WorkerBreakers) Allow(workerID string) (bool, error) {
	cb, err := b.get(workerID)
	if err != nil {
		return false, err
	}
	return cb.CanExecute(), nil
}

// RecordOutcome reports the result of an assignment to workerID's
// breaker, advancing it toward open or closed per the sliding-window
// error rate.
func (b *WorkerBreakers) RecordOutcome(workerID string, err error) error {
	cb, getErr := b.get(workerID)
	if getErr != nil {
		return getErr
	}
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return nil
}

// State returns the current state of workerID's breaker ("closed",
// "open", "half-open"), creating it if it does not yet exist.
func (b *WorkerBreakers) State(workerID string) (string, error) {
	cb, err := b.get(workerID)
	if err != nil {
		return "", err
	}
	return cb.GetState(), nil
}

// Reject is the error a caller should surface when Allow returns
// false. It carries KindWorkerFault and wraps swarmcore.ErrCircuitOpen,
// so errors.Is tells a circuit-open rejection apart from pool
// backpressure.
func Reject(workerID string) error {
	return swarmcore.NewRuntimeError("coordinator.assign", swarmcore.KindWorkerFault, workerID,
		"worker circuit breaker is open", swarmcore.ErrCircuitOpen)
}
