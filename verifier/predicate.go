// Package verifier implements C3: evaluating predicates against the
// real world through pluggable probes and emitting Proofs whose
// Observations are content-addressed.
package verifier

import "time"

// PredicateKind discriminates the predicate variants of §4.3.
type PredicateKind int

const (
	PredicateCommand PredicateKind = iota
	PredicateFile
	PredicateNetwork
	PredicateState
	PredicateComposite
)

// CompositeOp discriminates the combinators over sub-predicates.
type CompositeOp int

const (
	CompositeAllOf CompositeOp = iota
	CompositeAnyOf
	CompositeNotOf
)

// CommandSpec describes a Command predicate: run cmd with args, expect
// exit code in ExitCodes, stdout matching StdoutPattern, within Bound.
type CommandSpec struct {
	Cmd           string
	Args          []string
	Env           map[string]string
	Cwd           string
	ExitCodes     []int
	StdoutPattern string // regexp; empty means "don't care"
	Bound         time.Duration
}

// FileCheckKind discriminates the File predicate's check.
type FileCheckKind int

const (
	FileExists FileCheckKind = iota
	FileNotExists
	FileMatchesHash
	FileContainsSubstring
)

// FileSpec describes a File predicate.
type FileSpec struct {
	Path      string
	Check     FileCheckKind
	Hash      string // expected content hash, for FileMatchesHash
	Substring string // for FileContainsSubstring
}

// NetworkSpec describes a Network predicate: an HTTP(S) request
// expected to yield a status in StatusCodes and a body matching
// BodyPattern, within Bound.
type NetworkSpec struct {
	Method      string
	URL         string
	Headers     map[string]string
	Body        []byte
	StatusCodes []int
	BodyPattern string // regexp; empty means "don't care"
	Bound       time.Duration
}

// StateFunc is a supervisor-supplied closure evaluated against a
// serialized snapshot. It must not mutate the world — it observes the
// snapshot bytes and returns whether the predicate holds.
type StateFunc func(snapshot []byte) (bool, error)

// StateSpec describes a State predicate.
type StateSpec struct {
	Name     string
	Snapshot []byte
	Eval     StateFunc
}

// CompositeSpec describes a Composite predicate: a combinator over
// sub-predicates.
type CompositeSpec struct {
	Op     CompositeOp
	Inputs []Predicate
}

// Predicate is a tagged variant over the five predicate kinds of
// §4.3. Only the field matching Kind is meaningful. A description is
// always present so Proofs can carry a human-readable claim.
type Predicate struct {
	Kind        PredicateKind
	Description string

	Command   CommandSpec
	File      FileSpec
	Network   NetworkSpec
	State     StateSpec
	Composite CompositeSpec
}

func Command(description string, spec CommandSpec) Predicate {
	return Predicate{Kind: PredicateCommand, Description: description, Command: spec}
}

func File(description string, spec FileSpec) Predicate {
	return Predicate{Kind: PredicateFile, Description: description, File: spec}
}

func Network(description string, spec NetworkSpec) Predicate {
	return Predicate{Kind: PredicateNetwork, Description: description, Network: spec}
}

func State(description string, spec StateSpec) Predicate {
	return Predicate{Kind: PredicateState, Description: description, State: spec}
}

func AllOf(description string, preds ...Predicate) Predicate {
	return Predicate{Kind: PredicateComposite, Description: description, Composite: CompositeSpec{Op: CompositeAllOf, Inputs: preds}}
}

func AnyOf(description string, preds ...Predicate) Predicate {
	return Predicate{Kind: PredicateComposite, Description: description, Composite: CompositeSpec{Op: CompositeAnyOf, Inputs: preds}}
}

func NotOf(description string, pred Predicate) Predicate {
	return Predicate{Kind: PredicateComposite, Description: description, Composite: CompositeSpec{Op: CompositeNotOf, Inputs: []Predicate{pred}}}
}
