package intent

import (
	"time"

	"github.com/cenkalti/backoff/v5"
)

// BackoffSchedule computes the retry delay sequence for a Step's retry
// policy, built on cenkalti/backoff/v5's exponential backoff rather
// than a hand-rolled schedule (the dependency is already present in
// the resolved module graph; see SPEC_FULL.md's DOMAIN STACK section).
type BackoffSchedule struct {
	b *backoff.ExponentialBackOff
}

// NewBackoffSchedule builds a schedule starting at initial and
// growing by factor up to max.
func NewBackoffSchedule(initial, max time.Duration, factor float64) *BackoffSchedule {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = max
	b.Multiplier = factor
	b.RandomizationFactor = 0.2
	return &BackoffSchedule{b: b}
}

// Next returns the delay before the next attempt. ok is false only if
// the underlying backoff returns backoff.Stop; the schedule has no
// elapsed-time bound of its own, so callers bound retries with the
// Step's MaxAttempts.
func (s *BackoffSchedule) Next() (time.Duration, bool) {
	d := s.b.NextBackOff()
	if d == backoff.Stop {
		return 0, false
	}
	return d, true
}

// Reset restarts the schedule from its initial interval.
func (s *BackoffSchedule) Reset() {
	s.b.Reset()
}
