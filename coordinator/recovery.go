package coordinator

import (
	"context"
	"time"

	"github.com/synapsed-labs/swarmkit/intent"
	"github.com/synapsed-labs/swarmkit/store"
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// RecoveryRequest carries everything a RecoveryStrategy needs to
// decide what to do about a failed step, without the strategy needing
// to know about Intent/Step types directly.
type RecoveryRequest struct {
	IntentID    string
	WorkerID    string
	AttemptN    int
	MaxAttempts int
	Err         error
}

// RecoveryOutcome is what a strategy decided to do.
type RecoveryOutcome struct {
	Strategy string
	Resume   bool          // retry/resume the step
	Degraded bool          // accept a degraded result instead of retrying
	Delay    time.Duration // wait this long before resuming
	NextSlot int           // step slot to resume from, when restoring a checkpoint
}

// RecoveryStrategy is one link in the recovery cascade (§4.5). Attempt
// returns handled=false to let the cascade try the next strategy.
type RecoveryStrategy interface {
	Name() string
	Attempt(ctx context.Context, req RecoveryRequest) (RecoveryOutcome, bool)
}

// Cascade tries each strategy in order and commits to the first one
// that handles the request — first-success-wins, matching the
// original system's recovery-strategy chain (synapsed-swarm::recovery).
type Cascade struct {
	Strategies []RecoveryStrategy
}

// Attempt runs the cascade. ok is false if every strategy declined,
// meaning the caller must surface the error (§7: "only after strategy
// exhaustion do they surface").
func (c Cascade) Attempt(ctx context.Context, req RecoveryRequest) (RecoveryOutcome, bool) {
	for _, s := range c.Strategies {
		if out, ok := s.Attempt(ctx, req); ok {
			out.Strategy = s.Name()
			return out, true
		}
	}
	return RecoveryOutcome{}, false
}

// ExponentialBackoffStrategy retries retryable errors (postcondition-
// failed, timeout-expired, worker-fault) up to MaxAttempts, waiting
// according to Backoff between tries.
type ExponentialBackoffStrategy struct {
	Backoff *intent.BackoffSchedule
}

func (ExponentialBackoffStrategy) Name() string { return "exponential-backoff-retry" }

func (s ExponentialBackoffStrategy) Attempt(_ context.Context, req RecoveryRequest) (RecoveryOutcome, bool) {
	if !swarmcore.IsRetryable(req.Err) {
		return RecoveryOutcome{}, false
	}
	if req.MaxAttempts > 0 && req.AttemptN >= req.MaxAttempts {
		return RecoveryOutcome{}, false
	}
	delay := time.Duration(0)
	if s.Backoff != nil {
		d, ok := s.Backoff.Next()
		if !ok {
			return RecoveryOutcome{}, false
		}
		delay = d
	}
	return RecoveryOutcome{Resume: true, Delay: delay}, true
}

// CheckpointRecoveryStrategy restores execution from the intent's most
// recent checkpoint rather than replaying from the start.
type CheckpointRecoveryStrategy struct {
	Store store.CheckpointStore
}

func (CheckpointRecoveryStrategy) Name() string { return "restore-from-checkpoint" }

func (s CheckpointRecoveryStrategy) Attempt(ctx context.Context, req RecoveryRequest) (RecoveryOutcome, bool) {
	if !swarmcore.IsRetryable(req.Err) {
		return RecoveryOutcome{}, false
	}
	cp, ok, err := LoadLatestCheckpoint(ctx, s.Store, req.IntentID)
	if err != nil || !ok {
		return RecoveryOutcome{}, false
	}
	return RecoveryOutcome{Resume: true, NextSlot: cp.NextStepSlot}, true
}

// GracefulDegradationStrategy accepts a degraded-but-usable result
// instead of continuing to retry, for error kinds the caller has
// declared acceptable to degrade on (e.g. a non-critical verification
// step timing out).
type GracefulDegradationStrategy struct {
	AcceptableKinds map[swarmcore.ErrorKind]struct{}
}

func (GracefulDegradationStrategy) Name() string { return "graceful-degradation" }

func (s GracefulDegradationStrategy) Attempt(_ context.Context, req RecoveryRequest) (RecoveryOutcome, bool) {
	k, ok := classify(req.Err)
	if !ok {
		return RecoveryOutcome{}, false
	}
	if _, accept := s.AcceptableKinds[k]; !accept {
		return RecoveryOutcome{}, false
	}
	return RecoveryOutcome{Degraded: true}, true
}

// SelfHealingStrategy responds to a worker-fault, while the step still
// has attempts left, by asking the caller to resume the step on the
// same worker. It does not read or change Breakers, does not lower the
// worker's trust score, and does not select another worker.
type SelfHealingStrategy struct {
	Breakers *WorkerBreakers
}

func (SelfHealingStrategy) Name() string { return "self-healing" }

func (s SelfHealingStrategy) Attempt(_ context.Context, req RecoveryRequest) (RecoveryOutcome, bool) {
	k, ok := classify(req.Err)
	if !ok || k != swarmcore.KindWorkerFault {
		return RecoveryOutcome{}, false
	}
	if req.MaxAttempts > 0 && req.AttemptN >= req.MaxAttempts {
		return RecoveryOutcome{}, false
	}
	return RecoveryOutcome{Resume: true}, true
}

func classify(err error) (swarmcore.ErrorKind, bool) {
	return swarmcore.KindOf(err)
}
