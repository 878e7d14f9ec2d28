package coordinator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// Assignment is one unit of work handed to the pool: a Step ready to
// execute plus the callback that actually drives it to completion
// (built by the Coordinator, not this package, so Pool stays ignorant
// of Intent/Step types).
type Assignment struct {
	TaskID  string
	Execute func(ctx context.Context) error
}

// PoolConfig configures a Pool, following the teacher's
// TaskWorkerConfig shape (worker count, queue capacity, shutdown
// timeout).
type PoolConfig struct {
	WorkerCount     int
	QueueCapacity   int
	ShutdownTimeout time.Duration
	Logger          swarmcore.Logger
}

// DefaultPoolConfig returns sane defaults.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		WorkerCount:     5,
		QueueCapacity:   64,
		ShutdownTimeout: 30 * time.Second,
		Logger:          swarmcore.NoOpLogger{},
	}
}

// Pool is a bounded worker pool with FIFO ordering and load-shed
// backpressure: once the queue is full, Submit fails immediately
// rather than blocking the caller (§5's "bounded worker pool ...
// FIFO backpressure/load-shed").
type Pool struct {
	cfg   PoolConfig
	queue chan Assignment

	cancel context.CancelFunc
	wg     sync.WaitGroup

	running     atomic.Bool
	activeCount atomic.Int32
}

// NewPool builds a Pool. Call Start to begin processing.
func NewPool(cfg PoolConfig) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 5
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = 64
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = swarmcore.NoOpLogger{}
	}
	return &Pool{cfg: cfg, queue: make(chan Assignment, cfg.QueueCapacity)}
}

// Start spawns the worker goroutines. Idempotent.
func (p *Pool) Start(ctx context.Context) {
	if !p.running.CompareAndSwap(false, true) {
		return
	}
	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	for i := 0; i < p.cfg.WorkerCount; i++ {
		p.wg.Add(1)
		go p.runWorker(runCtx)
	}
}

func (p *Pool) runWorker(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case a, ok := <-p.queue:
			if !ok {
				return
			}
			p.activeCount.Add(1)
			err := a.Execute(ctx)
			p.activeCount.Add(-1)
			if err != nil {
				p.cfg.Logger.Warn("assignment execution returned error", map[string]interface{}{
					"task_id": a.TaskID, "error": err.Error(),
				})
			}
		}
	}
}

// Submit enqueues a, or returns a load-shed error immediately if the
// queue is full — it never blocks the caller.
func (p *Pool) Submit(a Assignment) error {
	select {
	case p.queue <- a:
		return nil
	default:
		return swarmcore.NewRuntimeError("coordinator.submit", swarmcore.KindLoadShed, a.TaskID,
			"worker pool queue is full", swarmcore.ErrLoadShed)
	}
}

// ActiveCount returns the number of assignments currently executing.
func (p *Pool) ActiveCount() int32 { return p.activeCount.Load() }

// QueueDepth returns the number of assignments waiting to be picked up.
func (p *Pool) QueueDepth() int { return len(p.queue) }

// Stop cancels all workers and waits up to ShutdownTimeout for them to
// drain.
func (p *Pool) Stop() {
	if !p.running.CompareAndSwap(true, false) {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(p.cfg.ShutdownTimeout):
	}
}
