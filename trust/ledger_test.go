package trust

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu      sync.Mutex
	records map[string]*Record
	flushes int
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[string]*Record{}}
}

func (f *fakeStore) GetAll(context.Context) (map[string]*Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]*Record, len(f.records))
	for k, v := range f.records {
		out[k] = v
	}
	return out, nil
}

func (f *fakeStore) UpsertBatch(_ context.Context, updates []*Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range updates {
		f.records[r.WorkerID] = r
	}
	return nil
}

func (f *fakeStore) Flush(context.Context) error {
	f.mu.Lock()
	f.flushes++
	f.mu.Unlock()
	return nil
}

func TestEWMAHappyPathScenario(t *testing.T) {
	// §8 scenario 1: trust 0.8 -> 0.84 after a fulfilled promise.
	r := NewRecord("worker-1")
	r.Apply(DefaultConfig(), "", OutcomeFulfilled, time.Now())
	// score starts at 0.5; force it to 0.8 to match the scenario fixture.
	r.Capabilities[""].Score = 0.8
	r.Apply(DefaultConfig(), "", OutcomeFulfilled, time.Now())
	assert.InDelta(t, 0.84, r.Score(), 1e-9)
}

func TestEWMAPostconditionFailureScenario(t *testing.T) {
	// §8 scenario 2: 0.5 -> 0.4 on a broken promise.
	r := NewRecord("worker-1")
	r.Apply(DefaultConfig(), "", OutcomeBroken, time.Now())
	assert.InDelta(t, 0.4, r.Score(), 1e-9)
}

func TestTrustBoundsClamp(t *testing.T) {
	r := NewRecord("worker-1")
	for i := 0; i < 50; i++ {
		r.Apply(DefaultConfig(), "", OutcomeFulfilled, time.Now())
	}
	assert.LessOrEqual(t, r.Score(), 1.0)
	assert.GreaterOrEqual(t, r.Score(), 0.0)
	assert.Equal(t, 50, r.Capabilities[""].Fulfilled)

	for i := 0; i < 50; i++ {
		r.Apply(DefaultConfig(), "", OutcomeBroken, time.Now())
	}
	assert.GreaterOrEqual(t, r.Score(), 0.0)
	assert.Equal(t, 50, r.Capabilities[""].Broken)
}

func TestCapabilityBucketsAreIndependent(t *testing.T) {
	r := NewRecord("worker-1")
	r.Apply(DefaultConfig(), "code_generation", OutcomeFulfilled, time.Now())
	r.Apply(DefaultConfig(), "verification", OutcomeBroken, time.Now())

	assert.Greater(t, r.CapabilityScore("code_generation"), r.CapabilityScore("verification"))
}

func TestLedgerFlushesOnThreshold(t *testing.T) {
	store := newFakeStore()
	ledger, err := NewLedger(context.Background(), store, WithFlushThreshold(2), WithFlushInterval(time.Hour))
	require.NoError(t, err)

	ledger.Record(context.Background(), "w1", "", OutcomeFulfilled)
	assert.Equal(t, 0, store.flushes)
	ledger.Record(context.Background(), "w2", "", OutcomeFulfilled)
	assert.Equal(t, 1, store.flushes)
}

func TestLedgerShutdownFlushesRemaining(t *testing.T) {
	store := newFakeStore()
	ledger, err := NewLedger(context.Background(), store, WithFlushThreshold(100), WithFlushInterval(time.Hour))
	require.NoError(t, err)

	ledger.Record(context.Background(), "w1", "", OutcomeFulfilled)
	require.NoError(t, ledger.Shutdown(context.Background()))

	all, err := store.GetAll(context.Background())
	require.NoError(t, err)
	_, ok := all["w1"]
	assert.True(t, ok)
}

func TestEvaluateAcceptanceFloor(t *testing.T) {
	assert.True(t, EvaluateAcceptance(Willingness{Score: 0.7}, 0.5, time.Now()))
	assert.False(t, EvaluateAcceptance(Willingness{Score: 0.3}, 0.5, time.Now()))
}

func TestPromiseLifecycle(t *testing.T) {
	p := New("worker-1", Scope{IntentID: [16]byte{1}, StepSlot: 0}, "will echo ok", 0.9, time.Now().Add(time.Minute))
	require.NoError(t, p.Accept())
	require.NoError(t, p.Begin())
	require.NoError(t, p.Fulfill("proof-hash"))
	assert.True(t, p.State.Terminal())

	err := p.Expire()
	assert.Error(t, err, "cannot resurrect a terminal promise")
}
