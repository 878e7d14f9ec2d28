package coordinator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/synapsed-labs/swarmkit/store"
)

// Checkpoint is the Coordinator's own serialized restore point: enough
// to resume an intent at a specific step without re-running completed
// work. Store/recovery only ever see this through its JSON encoding
// (an opaque []byte to store.CheckpointStore), so coordinator never
// needs a dependency from store back to coordinator.
type Checkpoint struct {
	IntentID     string `json:"intent_id"`
	AttemptN     int    `json:"attempt_n"`
	NextStepSlot int    `json:"next_step_slot"`
	ContextHash  string `json:"context_hash"`
}

// SaveCheckpoint persists cp keyed by (IntentID, AttemptN) — recovery
// that replays the same (intent_id, attempt_n) pair always observes
// the same checkpoint, making restart idempotent (§5's "checkpoint /
// recovery on restart (idempotent by (intent_id, attempt_n))").
func SaveCheckpoint(ctx context.Context, cs store.CheckpointStore, cp Checkpoint) error {
	blob, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	return cs.Put(ctx, cp.IntentID, cp.AttemptN, blob)
}

// LoadLatestCheckpoint returns the most recent checkpoint recorded for
// intentID, or ok=false if none exists yet (a fresh start).
func LoadLatestCheckpoint(ctx context.Context, cs store.CheckpointStore, intentID string) (Checkpoint, bool, error) {
	rec, ok, err := cs.Latest(ctx, intentID)
	if err != nil || !ok {
		return Checkpoint{}, false, err
	}
	var cp Checkpoint
	if err := json.Unmarshal(rec.Blob, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("decode checkpoint for %s: %w", intentID, err)
	}
	return cp, true, nil
}
