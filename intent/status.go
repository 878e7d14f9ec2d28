// Package intent implements C2: the hierarchical intent graph, its
// state machine, steps, checkpoints and deterministic execution order.
package intent

import "github.com/synapsed-labs/swarmkit/swarmcore"

// Status is the state machine shared by every Intent and Step (§4.2).
type Status int

const (
	StatusPending Status = iota
	StatusReady
	StatusExecuting
	StatusVerifying
	StatusSucceeded
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusReady:
		return "ready"
	case StatusExecuting:
		return "executing"
	case StatusVerifying:
		return "verifying"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether status is one that a rewind can no longer
// leave (succeeded, failed) or that ends the entity outright
// (cancelled). Cancel on a Step or Intent already in one of these
// states is a no-op.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// transition names the edges of the §4.2 state diagram.
type transition int

const (
	transAccept transition = iota
	transStart
	transFinish
	transPass
	transFail
	transRewind
	transCancel
)

// validTransitions enumerates, for each current status, which
// transitions are legal and the status they land on. Invariant INT-1:
// transitions are monotonic except the two rewind edges
// (executing->ready, verifying->ready) that return a step to the most
// recent checkpoint for another attempt.
var validTransitions = map[Status]map[transition]Status{
	StatusPending: {
		transAccept: StatusReady,
		transCancel: StatusCancelled,
	},
	StatusReady: {
		transStart:  StatusExecuting,
		transCancel: StatusCancelled,
	},
	StatusExecuting: {
		transFinish: StatusVerifying,
		transFail:   StatusFailed,
		transRewind: StatusReady,
		transCancel: StatusCancelled,
	},
	StatusVerifying: {
		transPass:   StatusSucceeded,
		transFail:   StatusFailed,
		transRewind: StatusReady,
		transCancel: StatusCancelled,
	},
}

// apply returns the next status for (current, t), or an error if the
// transition is not legal from current.
func apply(op string, id swarmcore.ID, current Status, t transition) (Status, error) {
	edges, ok := validTransitions[current]
	if !ok {
		if t == transCancel {
			return StatusCancelled, nil
		}
		return current, swarmcore.NewRuntimeError(op, swarmcore.KindInvalidIntent, id.String(),
			"no transitions defined from terminal status "+current.String(), nil)
	}
	next, ok := edges[t]
	if !ok {
		return current, swarmcore.NewRuntimeError(op, swarmcore.KindInvalidIntent, id.String(),
			"illegal transition from "+current.String(), nil)
	}
	return next, nil
}
