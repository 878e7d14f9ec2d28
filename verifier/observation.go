package verifier

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Observation is a single recorded probe result. Observations are
// content-addressable: Hash is computed over the serialized form of
// the probe's concrete outcome so two identical observations collapse
// to the same address (§3 "Observations are content-addressable").
type Observation struct {
	Predicate PredicateKind
	Summary   string // human-readable account of what was observed
	Raw       string // verbatim probe output (stdout, body, ...)
	Hash      string
	Error     string // non-empty if the probe itself errored
	At        time.Time
}

func newObservation(kind PredicateKind, summary, raw, probeErr string) Observation {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d|%s|%s|%s", kind, summary, raw, probeErr)))
	return Observation{
		Predicate: kind,
		Summary:   summary,
		Raw:       raw,
		Error:     probeErr,
		Hash:      hex.EncodeToString(sum[:]),
		At:        time.Now().UTC(),
	}
}
