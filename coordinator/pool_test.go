package coordinator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsSubmittedAssignments(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.WorkerCount = 2
	p := NewPool(cfg)
	p.Start(context.Background())
	defer p.Stop()

	var ran atomic.Int32
	done := make(chan struct{})
	require.NoError(t, p.Submit(Assignment{
		TaskID: "t1",
		Execute: func(ctx context.Context) error {
			ran.Add(1)
			close(done)
			return nil
		},
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("assignment did not run")
	}
	assert.Equal(t, int32(1), ran.Load())
}

func TestPoolLoadShedsWhenQueueFull(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.WorkerCount = 1
	cfg.QueueCapacity = 1
	p := NewPool(cfg)
	// Do not Start: nothing drains the queue, so it fills immediately.

	require.NoError(t, p.Submit(Assignment{TaskID: "t1", Execute: func(context.Context) error { return nil }}))
	err := p.Submit(Assignment{TaskID: "t2", Execute: func(context.Context) error { return nil }})
	assert.Error(t, err, "a full queue must reject rather than block")
}
