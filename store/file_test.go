package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synapsed-labs/swarmkit/trust"
)

func TestFileTrustStorePersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trust.json")

	s1 := NewFileTrustStore(path)
	r := trust.NewRecord("worker-1")
	r.Apply(trust.DefaultConfig(), "code_generation", trust.OutcomeFulfilled, time.Now())
	require.NoError(t, s1.UpsertBatch(ctx, []*trust.Record{r}))

	s2 := NewFileTrustStore(path)
	all, err := s2.GetAll(ctx)
	require.NoError(t, err)
	got, ok := all["worker-1"]
	require.True(t, ok)
	assert.InDelta(t, r.Score(), got.Score(), 1e-9)
}

func TestFileTrustStoreMissingFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent", "trust.json")
	s := NewFileTrustStore(path)
	all, err := s.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFileCheckpointStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := NewFileCheckpointStore(dir)

	require.NoError(t, s.Put(ctx, "intent-1", 0, []byte("v0")))
	require.NoError(t, s.Put(ctx, "intent-1", 1, []byte("v1")))

	latest, ok, err := s.Latest(ctx, "intent-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, latest.AttemptN)
	assert.Equal(t, []byte("v1"), latest.Blob)

	require.NoError(t, s.Delete(ctx, "intent-1"))
	_, ok, err = s.Latest(ctx, "intent-1")
	require.NoError(t, err)
	assert.False(t, ok)
}
