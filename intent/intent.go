package intent

import (
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/swarmcore"
	"github.com/synapsed-labs/swarmkit/verifier"
)

// Intent is a node in the hierarchical intent graph (§3): a goal
// declaration, its own pre/postconditions, the Context it runs under,
// an ordered sequence of Steps, and child sub-Intents it may delegate
// parts of the goal to.
type Intent struct {
	Goal string

	Preconditions  []verifier.Predicate
	Postconditions []verifier.Predicate

	Ctx      *scope.Context
	Steps    []*Step
	Parent   *Intent
	Children []*Intent

	RequiredChildren map[int]struct{} // indices into Children whose success gates the parent's postconditions

	Status Status

	id swarmcore.ID
}

// ID returns the intent's opaque identifier.
func (in *Intent) ID() swarmcore.ID { return in.id }

// IntentBuilder is a fluent constructor for an Intent tree, following
// the declared-goal / with-step / with-child shape of a fluent intent
// builder: callers assemble the whole tree before any Step executes,
// so preconditions and the allow-list are fixed ahead of observation.
type IntentBuilder struct {
	intent *Intent
}

// NewIntentBuilder starts building an Intent with the given goal,
// running under ctx.
func NewIntentBuilder(goal string, ctx *scope.Context) *IntentBuilder {
	return &IntentBuilder{intent: &Intent{
		Goal:             goal,
		Ctx:              ctx,
		Status:           StatusPending,
		RequiredChildren: map[int]struct{}{},
		id:               swarmcore.NewID(),
	}}
}

// WithPrecondition adds a predicate that must pass before the intent
// may become ready.
func (b *IntentBuilder) WithPrecondition(p verifier.Predicate) *IntentBuilder {
	b.intent.Preconditions = append(b.intent.Preconditions, p)
	return b
}

// WithPostcondition adds a predicate that must pass for the intent to
// be declared succeeded.
func (b *IntentBuilder) WithPostcondition(p verifier.Predicate) *IntentBuilder {
	b.intent.Postconditions = append(b.intent.Postconditions, p)
	return b
}

// WithStep appends a Step to the intent's declared execution order.
// Slot is assigned by declaration order, overriding any slot the
// caller set on the Step.
func (b *IntentBuilder) WithStep(step *Step) *IntentBuilder {
	step.Slot = len(b.intent.Steps)
	b.intent.Steps = append(b.intent.Steps, step)
	return b
}

// WithChild appends a sub-Intent. If required is true, the parent's
// postconditions may not be declared satisfied until child has reached
// StatusSucceeded (Invariant INT-2).
func (b *IntentBuilder) WithChild(child *Intent, required bool) *IntentBuilder {
	child.Parent = b.intent
	idx := len(b.intent.Children)
	b.intent.Children = append(b.intent.Children, child)
	if required {
		b.intent.RequiredChildren[idx] = struct{}{}
	}
	return b
}

// Build finalizes the Intent tree.
func (b *IntentBuilder) Build() *Intent { return b.intent }

// Accept moves pending -> ready.
func (in *Intent) Accept() error {
	next, err := apply("intent.accept", in.id, in.Status, transAccept)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// Start moves ready -> executing.
func (in *Intent) Start() error {
	next, err := apply("intent.start", in.id, in.Status, transStart)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// Finish moves executing -> verifying.
func (in *Intent) Finish() error {
	next, err := apply("intent.finish", in.id, in.Status, transFinish)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// ReadyForPostconditions reports whether every required child has
// reached StatusSucceeded — Invariant INT-2: a parent's postconditions
// cannot be declared satisfied before its required children's are.
func (in *Intent) ReadyForPostconditions() bool {
	for idx := range in.RequiredChildren {
		if idx < 0 || idx >= len(in.Children) {
			continue
		}
		if in.Children[idx].Status != StatusSucceeded {
			return false
		}
	}
	return true
}

// Pass moves verifying -> succeeded. Fails with KindInvalidIntent if a
// required child has not yet succeeded (Invariant INT-2), without ever
// touching the status field.
func (in *Intent) Pass() error {
	if !in.ReadyForPostconditions() {
		return swarmcore.NewRuntimeError("intent.pass", swarmcore.KindInvalidIntent, in.id.String(),
			"required child sub-intent has not yet succeeded", nil)
	}
	next, err := apply("intent.pass", in.id, in.Status, transPass)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// Fail moves the current status to failed.
func (in *Intent) Fail() error {
	next, err := apply("intent.fail", in.id, in.Status, transFail)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// Rewind moves executing or verifying -> ready, provided at least one
// step still has retry attempts remaining. It changes only the status;
// LastCheckpoint reports the restore point.
func (in *Intent) Rewind() error {
	remaining := false
	for _, step := range in.Steps {
		if step.Retry.MaxAttempts <= 0 || step.AttemptN < step.Retry.MaxAttempts {
			remaining = true
			break
		}
	}
	if !remaining {
		return swarmcore.NewRuntimeError("intent.rewind", swarmcore.KindInvalidIntent, in.id.String(),
			"attempts exhausted, cannot rewind", nil)
	}
	next, err := apply("intent.rewind", in.id, in.Status, transRewind)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// Cancel moves any non-terminal status to cancelled, and recursively
// cancels every child sub-intent and not-yet-terminal step.
func (in *Intent) Cancel() error {
	for _, child := range in.Children {
		_ = child.Cancel()
	}
	for _, step := range in.Steps {
		_ = step.Cancel()
	}
	if in.Status.Terminal() {
		return nil
	}
	next, err := apply("intent.cancel", in.id, in.Status, transCancel)
	if err != nil {
		return err
	}
	in.Status = next
	return nil
}

// LastCheckpoint returns the slot index of the most recent succeeded
// Step marked as a checkpoint, or -1 if none has succeeded yet. A
// rewind restores execution to just after this point, per §3's
// "checkpoint markers ... restore point for a rewind."
func (in *Intent) LastCheckpoint() int {
	last := -1
	for _, step := range in.Steps {
		if step.CheckpointMarker && step.Status == StatusSucceeded {
			last = step.Slot
		}
	}
	return last
}
