package intent

import (
	"github.com/synapsed-labs/swarmkit/swarmcore"
	"github.com/synapsed-labs/swarmkit/verifier"
)

// ActionKind discriminates what a Step asks a worker to do. The
// concrete execution semantics belong to the external WorkerExecutor
// collaborator (§6); the core only carries the tagged discriminator
// and an opaque payload the executor interprets (§9: "tagged variants
// for actions... easier to test and serialize").
type ActionKind int

const (
	ActionCommand ActionKind = iota
	ActionFileWrite
	ActionHTTPCall
	ActionCustomPayload
)

func (a ActionKind) String() string {
	switch a {
	case ActionCommand:
		return "command"
	case ActionFileWrite:
		return "file-write"
	case ActionHTTPCall:
		return "http-call"
	default:
		return "custom-payload"
	}
}

// Action is a Step's discriminated action: kind plus an opaque payload
// the WorkerExecutor interprets according to Kind.
type Action struct {
	Kind    ActionKind
	Payload map[string]interface{}
}

// RetryPolicy governs a Step's retry behavior on error (§3, §7).
type RetryPolicy struct {
	MaxAttempts    int
	Backoff        *BackoffSchedule
	RetryableKinds map[swarmcore.ErrorKind]struct{}
}

// NewRetryPolicy builds a RetryPolicy that retries the given kinds.
func NewRetryPolicy(maxAttempts int, backoff *BackoffSchedule, retryable ...swarmcore.ErrorKind) RetryPolicy {
	set := make(map[swarmcore.ErrorKind]struct{}, len(retryable))
	for _, k := range retryable {
		set[k] = struct{}{}
	}
	return RetryPolicy{MaxAttempts: maxAttempts, Backoff: backoff, RetryableKinds: set}
}

// AllowsRetry reports whether kind is explicitly listed as retryable
// by this policy. §7: precondition-failed only retries "iff the
// step's retry policy explicitly lists it" — there is no implicit
// allowance, unlike the recovery cascade kinds.
func (p RetryPolicy) AllowsRetry(kind swarmcore.ErrorKind) bool {
	_, ok := p.RetryableKinds[kind]
	return ok
}

// Step is one unit of work within an Intent (§3).
type Step struct {
	Slot             int
	Action           Action
	Preconditions    []verifier.Predicate
	Postconditions   []verifier.Predicate
	Retry            RetryPolicy
	CheckpointMarker bool

	Status   Status
	AttemptN int

	id swarmcore.ID
}

// NewStep creates a pending Step at the given declaration slot.
func NewStep(slot int, action Action) *Step {
	return &Step{
		Slot:   slot,
		Action: action,
		Status: StatusPending,
		id:     swarmcore.NewID(),
	}
}

// ID returns the step's opaque identifier.
func (s *Step) ID() swarmcore.ID { return s.id }

// Accept moves pending -> ready. The caller must already have
// confirmed the step is next in declared sequence.
func (s *Step) Accept() error {
	next, err := apply("step.accept", s.id, s.Status, transAccept)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// Start moves ready -> executing. Callers must have already evaluated
// all preconditions to pass under the frozen Context (§4.2).
func (s *Step) Start() error {
	next, err := apply("step.start", s.id, s.Status, transStart)
	if err != nil {
		return err
	}
	s.Status = next
	s.AttemptN++
	return nil
}

// Finish moves executing -> verifying, once the action's concrete
// effect is visible.
func (s *Step) Finish() error {
	next, err := apply("step.finish", s.id, s.Status, transFinish)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// Pass moves verifying -> succeeded: all postconditions evaluated pass.
func (s *Step) Pass() error {
	next, err := apply("step.pass", s.id, s.Status, transPass)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// Fail moves the current status to failed. Legal from executing or
// verifying.
func (s *Step) Fail() error {
	next, err := apply("step.fail", s.id, s.Status, transFail)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// Rewind moves executing or verifying back to ready, from the most
// recent checkpoint, only while total attempts remain below
// MaxAttempts (§3 Invariant INT-1's sole non-monotonic edge). Verifying
// rewinds when a postcondition failure is judged retryable by the
// recovery cascade; executing rewinds on a worker fault discovered
// before the effect was even checked.
func (s *Step) Rewind() error {
	if s.Retry.MaxAttempts > 0 && s.AttemptN >= s.Retry.MaxAttempts {
		return swarmcore.NewRuntimeError("step.rewind", swarmcore.KindInvalidIntent, s.id.String(),
			"attempts exhausted, cannot rewind", nil)
	}
	next, err := apply("step.rewind", s.id, s.Status, transRewind)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}

// Cancel moves any non-terminal status to cancelled. Cancelling a step
// that is already terminal (succeeded, failed or cancelled) is a no-op.
func (s *Step) Cancel() error {
	if s.Status.Terminal() {
		return nil
	}
	next, err := apply("step.cancel", s.id, s.Status, transCancel)
	if err != nil {
		return err
	}
	s.Status = next
	return nil
}
