// Package coordinator implements C5: worker selection, a bounded
// worker pool with backpressure, per-worker circuit breakers,
// checkpoint/recovery and sub-agent delegation.
package coordinator

import (
	"sort"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// WorkerDescriptor is what the Coordinator knows about a candidate
// worker at selection time: its current load and its trust score for
// the capability in question (sourced from trust.Ledger by the
// caller, so this package never imports the trust store directly).
type WorkerDescriptor struct {
	ID         string
	Load       int // in-flight assignments
	MaxLoad    int
	TrustScore float64
}

// rankScore combines trust and load into one ranking value: the trust
// score times the remaining headroom (1 - Load/MaxLoad, or 1 when
// MaxLoad is 0). A worker already at MaxLoad scores 0.
func (w WorkerDescriptor) rankScore() float64 {
	headroom := 1.0
	if w.MaxLoad > 0 {
		headroom = 1.0 - float64(w.Load)/float64(w.MaxLoad)
		if headroom < 0 {
			headroom = 0
		}
	}
	return w.TrustScore * headroom
}

// SelectWorker picks the highest-ranked candidate above trustFloor;
// candidates with equal rank keep their input order. Returns ErrTrustFloor if no
// candidate clears the floor, mirroring the spec's "no retry forces a
// worker under the trust floor" language.
func SelectWorker(candidates []WorkerDescriptor, trustFloor float64) (WorkerDescriptor, error) {
	eligible := make([]WorkerDescriptor, 0, len(candidates))
	for _, c := range candidates {
		if c.TrustScore >= trustFloor && (c.MaxLoad == 0 || c.Load < c.MaxLoad) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return WorkerDescriptor{}, swarmcore.NewRuntimeError("coordinator.select_worker", swarmcore.KindTrustFloor, "",
			"no worker above trust floor with available capacity", swarmcore.ErrTrustFloor)
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].rankScore() > eligible[j].rankScore()
	})
	return eligible[0], nil
}
