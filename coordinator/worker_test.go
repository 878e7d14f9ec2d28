package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectWorkerPrefersHigherTrust(t *testing.T) {
	candidates := []WorkerDescriptor{
		{ID: "low", TrustScore: 0.4, MaxLoad: 10},
		{ID: "high", TrustScore: 0.9, MaxLoad: 10},
	}
	w, err := SelectWorker(candidates, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "high", w.ID)
}

func TestSelectWorkerExcludesBelowFloor(t *testing.T) {
	candidates := []WorkerDescriptor{
		{ID: "low", TrustScore: 0.2, MaxLoad: 10},
	}
	_, err := SelectWorker(candidates, 0.5)
	assert.Error(t, err)
}

func TestSelectWorkerExcludesAtCapacity(t *testing.T) {
	candidates := []WorkerDescriptor{
		{ID: "full", TrustScore: 0.9, Load: 5, MaxLoad: 5},
		{ID: "open", TrustScore: 0.6, Load: 1, MaxLoad: 5},
	}
	w, err := SelectWorker(candidates, 0.3)
	require.NoError(t, err)
	assert.Equal(t, "open", w.ID)
}
