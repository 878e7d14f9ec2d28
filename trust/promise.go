// Package trust implements C4: the voluntary promise lifecycle and the
// reputation ledger that its outcomes feed.
package trust

import (
	"time"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// PromiseState is the state machine of §4.4:
// offered -> accepted -> in-flight -> fulfilled | broken, with
// expired reachable from accepted or in-flight.
type PromiseState int

const (
	PromiseOffered PromiseState = iota
	PromiseAccepted
	PromiseInFlight
	PromiseFulfilled
	PromiseBroken
	PromiseExpired
)

func (s PromiseState) String() string {
	switch s {
	case PromiseOffered:
		return "offered"
	case PromiseAccepted:
		return "accepted"
	case PromiseInFlight:
		return "in-flight"
	case PromiseFulfilled:
		return "fulfilled"
	case PromiseBroken:
		return "broken"
	case PromiseExpired:
		return "expired"
	default:
		return "unknown"
	}
}

func (s PromiseState) Terminal() bool {
	return s == PromiseFulfilled || s == PromiseBroken || s == PromiseExpired
}

// BrokenReason is the structured reason a broken promise carries (§4.4).
type BrokenReason string

const (
	ReasonPreconditionFailed  BrokenReason = "precondition-failed"
	ReasonPostconditionFailed BrokenReason = "postcondition-failed"
	ReasonPermissionDenied    BrokenReason = "permission-denied"
	ReasonTimeout             BrokenReason = "timeout"
	ReasonWorkerFault         BrokenReason = "worker-fault"
	ReasonChildBroken         BrokenReason = "child-broken"
)

// Scope identifies what a Promise is about: an Intent, optionally
// narrowed to one of its Steps.
type Scope struct {
	IntentID swarmcore.ID
	StepSlot int // -1 when the promise scopes the whole intent
}

// CounterProposal is a worker's requested narrowing of the offered
// contract — a tighter deadline and/or a narrower scope than what was
// offered. The supervisor may accept or refuse it; refusal causes the
// worker to be treated as having declined (§4.4: "autonomy is absolute").
type CounterProposal struct {
	TighterDeadline *time.Time
	NarrowerScope   *Scope
}

// Willingness is the result of worker-side evaluation of an offered
// intent scope (§4.4): a readiness score in [0,1] plus an optional
// counter-proposal. ReputationBond records how much of its trust score
// a worker offers to stake on the promise (drawn from the
// delegation-paper sketch's Bid.ReputationBond); nothing in this module
// reads it, and a broken promise forfeits no bond.
type Willingness struct {
	Score           float64
	CounterProposal *CounterProposal
	ReputationBond  float64
}

// Promise is immutable once made except for its State field, which
// only moves forward through the state machine above (§3).
type Promise struct {
	ID          swarmcore.ID
	WorkerID    string
	Scope       Scope
	Body        string
	Willingness float64
	Deadline    time.Time
	State       PromiseState
	Reason      BrokenReason
	ProofHash   string // the Proof that grounded the terminal verdict (Invariant PR-1)

	CreatedAt time.Time
}

// New creates an offered Promise.
func New(workerID string, scope Scope, body string, willingness float64, deadline time.Time) *Promise {
	return &Promise{
		ID:          swarmcore.NewID(),
		WorkerID:    workerID,
		Scope:       scope,
		Body:        body,
		Willingness: willingness,
		Deadline:    deadline,
		State:       PromiseOffered,
		CreatedAt:   time.Now().UTC(),
	}
}

// Accept transitions offered -> accepted.
func (p *Promise) Accept() error {
	if p.State != PromiseOffered {
		return swarmcore.NewRuntimeError("promise.accept", swarmcore.KindInvalidIntent, p.ID.String(),
			"cannot accept from state "+p.State.String(), nil)
	}
	p.State = PromiseAccepted
	return nil
}

// Begin transitions accepted -> in-flight.
func (p *Promise) Begin() error {
	if p.State != PromiseAccepted {
		return swarmcore.NewRuntimeError("promise.begin", swarmcore.KindInvalidIntent, p.ID.String(),
			"cannot begin from state "+p.State.String(), nil)
	}
	p.State = PromiseInFlight
	return nil
}

// Fulfill transitions in-flight -> fulfilled, recording the Proof that
// grounded it. Per Invariant PR-1, the verdict is never derived from
// the worker's self-report.
func (p *Promise) Fulfill(proofHash string) error {
	if p.State != PromiseInFlight {
		return swarmcore.NewRuntimeError("promise.fulfill", swarmcore.KindInvalidIntent, p.ID.String(),
			"cannot fulfill from state "+p.State.String(), nil)
	}
	p.State = PromiseFulfilled
	p.ProofHash = proofHash
	return nil
}

// Break transitions in-flight (or accepted, for preflight failures) ->
// broken, with a structured reason.
func (p *Promise) Break(reason BrokenReason, proofHash string) error {
	if p.State.Terminal() {
		return swarmcore.NewRuntimeError("promise.break", swarmcore.KindInvalidIntent, p.ID.String(),
			"already terminal: "+p.State.String(), swarmcore.ErrAlreadyTerminal)
	}
	p.State = PromiseBroken
	p.Reason = reason
	p.ProofHash = proofHash
	return nil
}

// Expire transitions accepted or in-flight -> expired. A broken or
// expired promise never returns to in-flight (§3).
func (p *Promise) Expire() error {
	if p.State != PromiseAccepted && p.State != PromiseInFlight {
		return swarmcore.NewRuntimeError("promise.expire", swarmcore.KindInvalidIntent, p.ID.String(),
			"cannot expire from state "+p.State.String(), nil)
	}
	p.State = PromiseExpired
	return nil
}

// IsExpiredByDeadline reports whether now is past the promise's
// deadline while it is still non-terminal.
func (p *Promise) IsExpiredByDeadline(now time.Time) bool {
	return !p.State.Terminal() && now.After(p.Deadline)
}

// EvaluateAcceptance decides whether a worker's Willingness clears the
// acceptance floor and, if a counter-proposal was attached, whether it
// still satisfies the supervisor's minimum acceptable deadline. An
// unwilling worker may always decline — this function only governs
// whether the core accepts an offer the worker has already returned.
func EvaluateAcceptance(w Willingness, acceptanceFloor float64, minAcceptableDeadline time.Time) bool {
	if w.Score < acceptanceFloor {
		return false
	}
	if w.CounterProposal != nil && w.CounterProposal.TighterDeadline != nil {
		if w.CounterProposal.TighterDeadline.Before(minAcceptableDeadline) {
			return false
		}
	}
	return true
}
