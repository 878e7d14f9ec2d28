package coordinator

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/synapsed-labs/swarmkit/intent"
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/store"
	"github.com/synapsed-labs/swarmkit/swarmcore"
	"github.com/synapsed-labs/swarmkit/trust"
	"github.com/synapsed-labs/swarmkit/verifier"
)

// TaskState is the coarse status the public status() operation
// exposes for a delegated intent (§6).
type TaskState int

const (
	TaskPending TaskState = iota
	TaskRunning
	TaskSucceeded
	TaskFailed
	TaskCancelled
)

func (s TaskState) String() string {
	switch s {
	case TaskPending:
		return "pending"
	case TaskRunning:
		return "running"
	case TaskSucceeded:
		return "succeeded"
	case TaskFailed:
		return "failed"
	case TaskCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// TaskStatus is the coordinator's public view of a delegated intent:
// state plus the most recent Proof and error, per §7's "each terminal
// intent yields a report."
type TaskStatus struct {
	State    TaskState
	WorkerID string
	Proof    *verifier.Proof
	Err      error
	Attempts int

	// Warnings holds any advisory flags Screen raised against the
	// intent at delegation time. A non-empty Warnings never blocks
	// delegation; it is carried through to the terminal report so a
	// caller can decide whether to trust a passed postcondition from a
	// task that screened as risky.
	Warnings []string
}

// StepExecutor drives one Step's Action to its concrete effect. It is
// supplied by the embedding application: the coordinator core never
// knows how to run a command or make an HTTP call itself, only how to
// sequence, verify and recover around whatever StepExecutor does.
type StepExecutor interface {
	Execute(ctx context.Context, workerID string, ctxScope *scope.Context, step *intent.Step) error
}

// Coordinator is C5: it selects a worker, assigns work through a
// bounded Pool, enforces per-worker circuit breakers, verifies
// results, updates trust, checkpoints progress and drives the
// recovery cascade on failure.
type Coordinator struct {
	mu sync.Mutex

	pool        *Pool
	breakers    *WorkerBreakers
	ledger      *trust.Ledger
	checkpoints store.CheckpointStore
	cascade     Cascade
	verifier    *verifier.Verifier

	trustFloor float64
	tasks      map[string]*TaskStatus
	cancelFns  map[string]context.CancelFunc
}

// Config bundles a Coordinator's collaborators.
type Config struct {
	Pool        *Pool
	Breakers    *WorkerBreakers
	Ledger      *trust.Ledger
	Checkpoints store.CheckpointStore
	Cascade     Cascade
	Verifier    *verifier.Verifier
	TrustFloor  float64
}

// New builds a Coordinator from cfg.
func New(cfg Config) *Coordinator {
	return &Coordinator{
		pool:        cfg.Pool,
		breakers:    cfg.Breakers,
		ledger:      cfg.Ledger,
		checkpoints: cfg.Checkpoints,
		cascade:     cfg.Cascade,
		verifier:    cfg.Verifier,
		trustFloor:  cfg.TrustFloor,
		tasks:       map[string]*TaskStatus{},
		cancelFns:   map[string]context.CancelFunc{},
	}
}

// Delegate is the public delegate() operation of §6: select a worker
// for in's next step among the candidates whose circuit breaker allows
// an assignment, assign it through the pool, and track progress under
// a fresh task_id. in.Ctx is used as given; Delegate derives no child
// context from it.
func (c *Coordinator) Delegate(ctx context.Context, in *intent.Intent, candidates []WorkerDescriptor, exec StepExecutor) (string, error) {
	allowed := make([]WorkerDescriptor, 0, len(candidates))
	for _, cand := range candidates {
		allow, err := c.breakers.Allow(cand.ID)
		if err != nil {
			return "", err
		}
		if allow {
			allowed = append(allowed, cand)
		}
	}
	if len(allowed) == 0 && len(candidates) > 0 {
		return "", Reject(candidates[0].ID)
	}
	worker, err := SelectWorker(allowed, c.trustFloor)
	if err != nil {
		return "", err
	}

	taskID := swarmcore.NewID().String()
	warnings := Screen(in)

	c.mu.Lock()
	c.tasks[taskID] = &TaskStatus{State: TaskPending, WorkerID: worker.ID, Warnings: warnings}
	c.mu.Unlock()

	err = c.pool.Submit(Assignment{
		TaskID: taskID,
		Execute: func(poolCtx context.Context) error {
			runCtx, cancel := context.WithCancel(poolCtx)
			c.mu.Lock()
			c.cancelFns[taskID] = cancel
			c.mu.Unlock()
			defer cancel()
			return c.run(runCtx, taskID, worker.ID, in, exec)
		},
	})
	if err != nil {
		c.mu.Lock()
		delete(c.tasks, taskID)
		c.mu.Unlock()
		return "", err
	}
	return taskID, nil
}

// run drives in's declared Steps to completion (or failure), applying
// the recovery cascade on a retryable error and recording the
// terminal outcome against the worker's trust score.
func (c *Coordinator) run(ctx context.Context, taskID, workerID string, in *intent.Intent, exec StepExecutor) error {
	c.setStatus(taskID, TaskRunning, nil, nil)

	if in.Status == intent.StatusPending {
		if err := in.Accept(); err != nil {
			return c.fail(taskID, workerID, err)
		}
	}
	if err := in.Start(); err != nil {
		return c.fail(taskID, workerID, err)
	}

	for {
		step := in.NextStep()
		if step == nil {
			break
		}
		if err := c.runStep(ctx, taskID, workerID, in, step, exec); err != nil {
			return c.fail(taskID, workerID, err)
		}
		c.checkpointAfter(ctx, in, step)
	}

	if err := in.Finish(); err != nil {
		return c.fail(taskID, workerID, err)
	}

	var proof *verifier.Proof
	if c.verifier != nil {
		for _, pred := range in.Postconditions {
			proof = c.verifier.Evaluate(ctx, in.Ctx, in.ID(), pred)
			if proof.Verdict != verifier.VerdictPass {
				return c.fail(taskID, workerID, swarmcore.NewRuntimeError("coordinator.verify_postcondition",
					swarmcore.KindPostconditionFailed, in.ID().String(), proof.Reason, swarmcore.ErrPostconditionFailed))
			}
		}
	}
	if err := in.Pass(); err != nil {
		return c.fail(taskID, workerID, err)
	}

	_ = c.breakers.RecordOutcome(workerID, nil)
	if c.ledger != nil {
		c.ledger.Record(ctx, workerID, "", trust.OutcomeFulfilled)
	}
	c.mu.Lock()
	ts := c.tasks[taskID]
	ts.State = TaskSucceeded
	ts.Proof = proof
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) runStep(ctx context.Context, taskID, workerID string, in *intent.Intent, step *intent.Step, exec StepExecutor) error {
	if step.Status == intent.StatusPending {
		if err := step.Accept(); err != nil {
			return err
		}
	}
	if c.verifier != nil {
		for _, pred := range step.Preconditions {
			proof := c.verifier.Evaluate(ctx, in.Ctx, in.ID(), pred)
			if proof.Verdict != verifier.VerdictPass {
				kind, sentinel := swarmcore.KindPreconditionFailed, swarmcore.ErrPreconditionFailed
				if strings.HasPrefix(proof.Reason, "permission-denied") {
					kind, sentinel = swarmcore.KindPermissionDenied, swarmcore.ErrPermissionDenied
				}
				return swarmcore.NewRuntimeError("coordinator.precondition", kind,
					step.ID().String(), proof.Reason, sentinel)
			}
		}
	}
	if err := step.Start(); err != nil {
		return err
	}

	execErr := exec.Execute(ctx, workerID, in.Ctx, step)

	if err := step.Finish(); err != nil {
		return err
	}

	if execErr == nil && c.verifier != nil {
		for _, pred := range step.Postconditions {
			proof := c.verifier.Evaluate(ctx, in.Ctx, in.ID(), pred)
			if proof.Verdict != verifier.VerdictPass {
				execErr = swarmcore.NewRuntimeError("coordinator.postcondition", swarmcore.KindPostconditionFailed,
					step.ID().String(), proof.Reason, swarmcore.ErrPostconditionFailed)
				break
			}
		}
	}

	if execErr != nil {
		if rerr := c.recover(ctx, in.ID().String(), workerID, step, execErr); rerr == nil {
			return nil
		}
		_ = step.Fail()
		return execErr
	}

	return step.Pass()
}

// recover runs the cascade for one failed step. On success it either
// resumes the step in place (the step is left ready for another
// Accept/Start cycle via Rewind) or accepts a degraded outcome and
// treats the step as passed.
func (c *Coordinator) recover(ctx context.Context, intentID, workerID string, step *intent.Step, stepErr error) error {
	req := RecoveryRequest{
		IntentID:    intentID,
		WorkerID:    workerID,
		AttemptN:    step.AttemptN,
		MaxAttempts: step.Retry.MaxAttempts,
		Err:         stepErr,
	}
	out, ok := c.cascade.Attempt(ctx, req)
	if !ok {
		_ = c.breakers.RecordOutcome(workerID, stepErr)
		if c.ledger != nil {
			c.ledger.Record(ctx, workerID, "", trust.OutcomeBroken)
		}
		return stepErr
	}
	if out.Degraded {
		return step.Pass()
	}
	if out.Delay > 0 {
		timer := time.NewTimer(out.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	if err := step.Rewind(); err != nil {
		return err
	}
	return nil
}

func (c *Coordinator) checkpointAfter(ctx context.Context, in *intent.Intent, step *intent.Step) {
	if c.checkpoints == nil || !step.CheckpointMarker || step.Status != intent.StatusSucceeded {
		return
	}
	cp := Checkpoint{
		IntentID:     in.ID().String(),
		AttemptN:     step.AttemptN,
		NextStepSlot: step.Slot + 1,
		ContextHash:  in.Ctx.Snapshot().Hash,
	}
	_ = SaveCheckpoint(ctx, c.checkpoints, cp)
}

func (c *Coordinator) fail(taskID, workerID string, err error) error {
	c.setStatus(taskID, TaskFailed, nil, err)
	return err
}

func (c *Coordinator) setStatus(taskID string, state TaskState, proof *verifier.Proof, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tasks[taskID]
	if !ok {
		ts = &TaskStatus{}
		c.tasks[taskID] = ts
	}
	if ts.State == TaskCancelled {
		// Cancel() is final: a run loop that was still in flight when
		// the task was cancelled must not resurrect it as failed.
		return
	}
	ts.State = state
	if proof != nil {
		ts.Proof = proof
	}
	if err != nil {
		ts.Err = err
	}
}

// Cancel is the public cancel() operation: it cancels the task's
// context, causing any in-flight step execution to observe
// ctx.Done(). Idempotent.
func (c *Coordinator) Cancel(taskID string) {
	c.mu.Lock()
	cancel, ok := c.cancelFns[taskID]
	ts := c.tasks[taskID]
	c.mu.Unlock()
	if ok {
		cancel()
	}
	if ts != nil {
		c.mu.Lock()
		ts.State = TaskCancelled
		c.mu.Unlock()
	}
}

// Status is the public status() operation.
func (c *Coordinator) Status(taskID string) (TaskStatus, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ts, ok := c.tasks[taskID]
	if !ok {
		return TaskStatus{}, false
	}
	return *ts, true
}

// Metrics is the public metrics() operation: a point-in-time snapshot
// of pool occupancy.
type Metrics struct {
	ActiveAssignments int32
	QueueDepth        int
	TaskCount         int
}

func (c *Coordinator) Metrics() Metrics {
	c.mu.Lock()
	n := len(c.tasks)
	c.mu.Unlock()
	return Metrics{
		ActiveAssignments: c.pool.ActiveCount(),
		QueueDepth:        c.pool.QueueDepth(),
		TaskCount:         n,
	}
}
