package verifier

import (
	"time"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// Verdict is the three-valued outcome of §4.3. Inconclusive is never
// treated as pass by any caller in this runtime.
type Verdict int

const (
	VerdictPass Verdict = iota
	VerdictFail
	VerdictInconclusive
)

func (v Verdict) String() string {
	switch v {
	case VerdictPass:
		return "pass"
	case VerdictFail:
		return "fail"
	default:
		return "inconclusive"
	}
}

// Proof is the append-only record of one predicate evaluation (§3):
// the claim evaluated, every Observation gathered along the way, and
// the final verdict.
type Proof struct {
	IntentID     swarmcore.ID
	Claim        string
	Observations []Observation
	Verdict      Verdict
	Reason       string // populated on fail/inconclusive
	ProducedAt   time.Time
}
