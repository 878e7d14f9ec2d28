package store

import (
	"context"
	"sync"
	"time"

	"github.com/synapsed-labs/swarmkit/trust"
)

// MemoryTrustStore is an in-process trust.Store, the default backing
// for a Ledger when no external persistence is configured — mirrors
// the teacher's preference for a NoOp/in-memory default over a nil
// dependency (§9 "Optional dependencies use NoOp defaults").
type MemoryTrustStore struct {
	mu      sync.Mutex
	records map[string]*trust.Record
}

// NewMemoryTrustStore returns an empty MemoryTrustStore.
func NewMemoryTrustStore() *MemoryTrustStore {
	return &MemoryTrustStore{records: map[string]*trust.Record{}}
}

func (m *MemoryTrustStore) GetAll(context.Context) (map[string]*trust.Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]*trust.Record, len(m.records))
	for k, v := range m.records {
		out[k] = v
	}
	return out, nil
}

func (m *MemoryTrustStore) UpsertBatch(_ context.Context, updates []*trust.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range updates {
		m.records[r.WorkerID] = r
	}
	return nil
}

func (m *MemoryTrustStore) Flush(context.Context) error { return nil }

// MemoryCheckpointStore is an in-process CheckpointStore, used in
// tests and single-process deployments.
type MemoryCheckpointStore struct {
	mu      sync.Mutex
	records map[string]map[int]CheckpointRecord // intentID -> attemptN -> record
}

// NewMemoryCheckpointStore returns an empty MemoryCheckpointStore.
func NewMemoryCheckpointStore() *MemoryCheckpointStore {
	return &MemoryCheckpointStore{records: map[string]map[int]CheckpointRecord{}}
}

func (m *MemoryCheckpointStore) Put(_ context.Context, intentID string, attemptN int, blob []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records[intentID] == nil {
		m.records[intentID] = map[int]CheckpointRecord{}
	}
	m.records[intentID][attemptN] = CheckpointRecord{
		IntentID:  intentID,
		AttemptN:  attemptN,
		Blob:      append([]byte(nil), blob...),
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

func (m *MemoryCheckpointStore) Get(_ context.Context, intentID string, attemptN int) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byAttempt, ok := m.records[intentID]
	if !ok {
		return nil, false, nil
	}
	rec, ok := byAttempt[attemptN]
	if !ok {
		return nil, false, nil
	}
	return rec.Blob, true, nil
}

func (m *MemoryCheckpointStore) Latest(_ context.Context, intentID string) (*CheckpointRecord, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	byAttempt, ok := m.records[intentID]
	if !ok || len(byAttempt) == 0 {
		return nil, false, nil
	}
	var latest *CheckpointRecord
	for _, rec := range byAttempt {
		rec := rec
		if latest == nil || rec.AttemptN > latest.AttemptN {
			latest = &rec
		}
	}
	return latest, true, nil
}

func (m *MemoryCheckpointStore) Delete(_ context.Context, intentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, intentID)
	return nil
}
