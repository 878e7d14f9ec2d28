package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/synapsed-labs/swarmkit/config"
	"github.com/synapsed-labs/swarmkit/coordinator"
	"github.com/synapsed-labs/swarmkit/intent"
	"github.com/synapsed-labs/swarmkit/resilience"
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/store"
	"github.com/synapsed-labs/swarmkit/swarmcore"
	"github.com/synapsed-labs/swarmkit/trust"
	"github.com/synapsed-labs/swarmkit/verifier"
)

// collaborators bundles the per-run construction every scenario shares:
// a started pool, a fresh trust ledger, an in-memory checkpoint store
// and the reference verifier. Each scenario builds its own
// coordinator.Cascade and coordinator.Config so the recovery strategy
// and breaker behavior on display matches what the scenario is
// demonstrating.
type collaborators struct {
	pool        *coordinator.Pool
	breakers    *coordinator.WorkerBreakers
	ledger      *trust.Ledger
	checkpoints store.CheckpointStore
	verifier    *verifier.Verifier
	logger      swarmcore.Logger
}

func newCollaborators(ctx context.Context, cfg *config.Config) (*collaborators, error) {
	logger := swarmcore.NewSimpleLogger()

	pool := coordinator.NewPool(coordinator.PoolConfig{
		WorkerCount:     cfg.Pool.WorkerCount,
		QueueCapacity:   cfg.Pool.QueueCapacity,
		ShutdownTimeout: cfg.Pool.ShutdownTimeout,
		Logger:          logger,
	})
	pool.Start(ctx)

	ledger, err := trust.NewLedger(ctx, store.NewMemoryTrustStore(),
		trust.WithAlpha(cfg.Trust.Alpha),
		trust.WithExpiredCredit(cfg.Trust.ExpiredCredit),
		trust.WithFlushThreshold(cfg.Trust.FlushThreshold),
		trust.WithFlushInterval(cfg.Trust.FlushInterval),
	)
	if err != nil {
		return nil, err
	}

	return &collaborators{
		pool:        pool,
		breakers:    coordinator.NewWorkerBreakers(nil),
		ledger:      ledger,
		checkpoints: store.NewMemoryCheckpointStore(),
		verifier:    verifier.New(),
		logger:      logger,
	}, nil
}

func rootContext(allow scope.AllowList) *scope.Context {
	return scope.New(nil, allow, scope.Budget{MaxWallTime: 30 * time.Second})
}

func waitForTerminal(c *coordinator.Coordinator, taskID string, deadline time.Duration) coordinator.TaskStatus {
	until := time.Now().Add(deadline)
	for time.Now().Before(until) {
		ts, ok := c.Status(taskID)
		if ok {
			switch ts.State {
			case coordinator.TaskSucceeded, coordinator.TaskFailed, coordinator.TaskCancelled:
				return ts
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	ts, _ := c.Status(taskID)
	return ts
}

func printResult(scenario string, ts coordinator.TaskStatus) {
	fmt.Printf("[%s] state=%s attempts=%d err=%v\n", scenario, ts.State, ts.Attempts, ts.Err)
	for _, w := range ts.Warnings {
		fmt.Printf("[%s]   screen warning: %s\n", scenario, w)
	}
}

// scenarioHappyPath: §8 scenario 1 — three sequential command steps,
// single trustworthy worker, every postcondition passes.
func scenarioHappyPath(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	root := rootContext(allow)

	builder := intent.NewIntentBuilder("build-api", root)
	for i := 0; i < 3; i++ {
		step := intent.NewStep(i, intent.Action{Kind: intent.ActionCommand, Payload: map[string]interface{}{
			"cmd": "echo", "args": []string{"ok"},
		}})
		step.Postconditions = append(step.Postconditions, verifier.Command("echo exits 0", verifier.CommandSpec{
			Cmd: "echo", Args: []string{"ok"}, ExitCodes: []int{0}, Bound: 2 * time.Second,
		}))
		builder.WithStep(step)
	}
	in := builder.Build()

	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: cb.breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, TrustFloor: cfg.TrustFloor,
	})

	candidates := []coordinator.WorkerDescriptor{{ID: "worker-1", TrustScore: 0.8, MaxLoad: 1}}
	taskID, err := c.Delegate(ctx, in, candidates, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	ts := waitForTerminal(c, taskID, 5*time.Second)
	printResult("happy-path", ts)
	fmt.Printf("[happy-path] trust after = %.4f\n", cb.ledger.Get("worker-1").Score())
	return nil
}

// scenarioPostconditionFailure: §8 scenario 2 — the action writes
// "busy" where the postcondition expects "ready"; no retry policy is
// declared, so the step fails terminally and trust drops.
func scenarioPostconditionFailure(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	allow := scope.NewAllowList()
	allow.Paths = append(allow.Paths, "/tmp")
	root := rootContext(allow)

	builder := intent.NewIntentBuilder("write-ready-marker", root)
	step := intent.NewStep(0, intent.Action{Kind: intent.ActionFileWrite, Payload: map[string]interface{}{
		"path": "/tmp/x", "content": "busy",
	}})
	step.Postconditions = append(step.Postconditions, verifier.File("/tmp/x contains \"ready\"", verifier.FileSpec{
		Path: "/tmp/x", Check: verifier.FileContainsSubstring, Substring: "ready",
	}))
	builder.WithStep(step)
	in := builder.Build()

	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: cb.breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, TrustFloor: cfg.TrustFloor,
	})

	candidates := []coordinator.WorkerDescriptor{{ID: "worker-1", TrustScore: 0.5, MaxLoad: 1}}
	taskID, err := c.Delegate(ctx, in, candidates, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	ts := waitForTerminal(c, taskID, 5*time.Second)
	printResult("postcondition-failure", ts)
	fmt.Printf("[postcondition-failure] trust after = %.4f\n", cb.ledger.Get("worker-1").Score())
	return nil
}

// scenarioTimeoutRecovery: §8 scenario 3 — a slow worker times out on
// the first attempt; the exponential-backoff strategy retries and the
// second attempt (a fast worker, simulated by the SleepyExecutor only
// sleeping once) succeeds.
func scenarioTimeoutRecovery(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	root := rootContext(allow)

	builder := intent.NewIntentBuilder("slow-step", root)
	step := intent.NewStep(0, intent.Action{Kind: intent.ActionCommand, Payload: map[string]interface{}{
		"cmd": "echo", "args": []string{"ok"},
	}})
	step.Retry = intent.NewRetryPolicy(3, intent.NewBackoffSchedule(10*time.Millisecond, 100*time.Millisecond, 2.0),
		swarmcore.KindTimeoutExpired, swarmcore.KindWorkerFault)
	step.Postconditions = append(step.Postconditions, verifier.Command("echo exits 0", verifier.CommandSpec{
		Cmd: "echo", Args: []string{"ok"}, ExitCodes: []int{0}, Bound: 2 * time.Second,
	}))
	builder.WithStep(step)
	in := builder.Build()

	cascade := coordinator.Cascade{Strategies: []coordinator.RecoveryStrategy{
		coordinator.ExponentialBackoffStrategy{Backoff: intent.NewBackoffSchedule(10*time.Millisecond, 100*time.Millisecond, 2.0)},
	}}
	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: cb.breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, Cascade: cascade, TrustFloor: cfg.TrustFloor,
	})

	// The SleepyExecutor's first attempt sleeps and then reports
	// timeout-expired, which the step's retry policy and the backoff
	// strategy treat as retryable; the retried attempt runs echo directly.
	exec := &SleepyExecutor{Inner: CommandExecutor{Logger: cb.logger}, Sleep: 50 * time.Millisecond}
	candidates := []coordinator.WorkerDescriptor{{ID: "worker-1", TrustScore: 0.6, MaxLoad: 1}}
	taskID, err := c.Delegate(ctx, in, candidates, exec)
	if err != nil {
		return err
	}
	ts := waitForTerminal(c, taskID, 5*time.Second)
	printResult("timeout-recovery", ts)
	return nil
}

// scenarioPermissionDenial: §8 scenario 4 — the allow-list grants only
// "echo" but the step asks to run "rm"; the verifier never even
// dispatches the probe, the task fails with permission-denied, and no
// retry is attempted because a failed precondition returns before the
// recovery cascade runs.
func scenarioPermissionDenial(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	root := rootContext(allow)

	builder := intent.NewIntentBuilder("cleanup", root)
	step := intent.NewStep(0, intent.Action{Kind: intent.ActionCommand, Payload: map[string]interface{}{
		"cmd": "rm", "args": []string{"-f", "/tmp/irrelevant"},
	}})
	step.Preconditions = append(step.Preconditions, verifier.Command("rm is permitted", verifier.CommandSpec{
		Cmd: "rm", ExitCodes: []int{0},
	}))
	builder.WithStep(step)
	in := builder.Build()

	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: cb.breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, TrustFloor: cfg.TrustFloor,
	})

	candidates := []coordinator.WorkerDescriptor{{ID: "worker-1", TrustScore: 0.7, MaxLoad: 1}}
	taskID, err := c.Delegate(ctx, in, candidates, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	ts := waitForTerminal(c, taskID, 5*time.Second)
	printResult("permission-denial", ts)
	return nil
}

// scenarioCircuitBreakerTrip: §8 scenario 5 — a worker fails three
// promises in a row; its breaker trips open and a subsequent Delegate
// routes to another worker instead.
func scenarioCircuitBreakerTrip(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	root := rootContext(allow)

	// The default breaker config requires a volume of 10 requests
	// before it evaluates the error rate at all; this scenario tips a
	// worker after exactly 3 failed promises (§8 scenario 5), so it
	// needs its own lower-volume breaker bank instead of cb.breakers.
	breakers := coordinator.NewWorkerBreakers(func(workerID string) *resilience.CircuitBreakerConfig {
		bcfg := resilience.DefaultConfig()
		bcfg.Name = "worker/" + workerID
		bcfg.VolumeThreshold = 3
		bcfg.ErrorThreshold = 0.5
		bcfg.SleepWindow = 200 * time.Millisecond
		return bcfg
	})

	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, TrustFloor: 0,
	})

	failingStep := func() *intent.Intent {
		b := intent.NewIntentBuilder("flaky-task", root)
		s := intent.NewStep(0, intent.Action{Kind: intent.ActionCommand, Payload: map[string]interface{}{"cmd": "echo"}})
		s.Postconditions = append(s.Postconditions, verifier.Command("never passes", verifier.CommandSpec{
			Cmd: "echo", ExitCodes: []int{99},
		}))
		b.WithStep(s)
		return b.Build()
	}

	candidates := []coordinator.WorkerDescriptor{{ID: "worker-unreliable", TrustScore: 0.6, MaxLoad: 10}}
	for i := 0; i < 3; i++ {
		taskID, err := c.Delegate(ctx, failingStep(), candidates, CommandExecutor{Logger: cb.logger})
		if err != nil {
			return err
		}
		ts := waitForTerminal(c, taskID, 2*time.Second)
		printResult(fmt.Sprintf("breaker-trip attempt %d", i+1), ts)
	}

	state, _ := breakers.State("worker-unreliable")
	fmt.Printf("[breaker-trip] worker-unreliable breaker state = %s\n", state)

	// Fourth delegate: worker-unreliable's breaker should now reject,
	// routing work to worker-backup instead.
	candidates = []coordinator.WorkerDescriptor{
		{ID: "worker-unreliable", TrustScore: 0.6, MaxLoad: 10},
		{ID: "worker-backup", TrustScore: 0.5, MaxLoad: 10},
	}
	taskID, err := c.Delegate(ctx, failingStep(), candidates, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	ts := waitForTerminal(c, taskID, 2*time.Second)
	printResult("breaker-trip attempt 4 (rerouted)", ts)
	return nil
}

// scenarioSubAgentDelegation: §8 scenario 6 — a child intent is given
// a narrowed context that drops network-hosts; its HTTP probe is
// therefore denied before any request is attempted, breaking the
// child with permission-denied.
func scenarioSubAgentDelegation(ctx context.Context, cfg *config.Config) error {
	cb, err := newCollaborators(ctx, cfg)
	if err != nil {
		return err
	}
	defer cb.pool.Stop()

	parentAllow := scope.NewAllowList()
	parentAllow.Commands["echo"] = struct{}{}
	parentAllow.NetworkHosts = append(parentAllow.NetworkHosts, "api.example.com")
	parentRoot := rootContext(parentAllow)

	childAllow := scope.NewAllowList()
	childAllow.Commands["echo"] = struct{}{}
	childCtx, err := parentRoot.Child(childAllow, scope.Budget{MaxWallTime: 10 * time.Second})
	if err != nil {
		return err
	}

	childBuilder := intent.NewIntentBuilder("fetch-remote-status", childCtx)
	childStep := intent.NewStep(0, intent.Action{Kind: intent.ActionHTTPCall, Payload: map[string]interface{}{
		"url": "https://api.example.com/status",
	}})
	childStep.Preconditions = append(childStep.Preconditions, verifier.Network("network host permitted", verifier.NetworkSpec{
		Method: "GET", URL: "https://api.example.com/status", StatusCodes: []int{200},
	}))
	childBuilder.WithStep(childStep)
	child := childBuilder.Build()

	parentBuilder := intent.NewIntentBuilder("parent-task", parentRoot)
	parentStep := intent.NewStep(0, intent.Action{Kind: intent.ActionCommand, Payload: map[string]interface{}{
		"cmd": "echo", "args": []string{"parent-step-ok"},
	}})
	parentBuilder.WithStep(parentStep)
	parentBuilder.WithChild(child, true)
	parent := parentBuilder.Build()

	c := coordinator.New(coordinator.Config{
		Pool: cb.pool, Breakers: cb.breakers, Ledger: cb.ledger,
		Checkpoints: cb.checkpoints, Verifier: cb.verifier, TrustFloor: cfg.TrustFloor,
	})

	childTaskID, err := c.Delegate(ctx, child, []coordinator.WorkerDescriptor{{ID: "worker-child", TrustScore: 0.6, MaxLoad: 1}}, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	childTS := waitForTerminal(c, childTaskID, 5*time.Second)
	printResult("sub-agent-delegation (child)", childTS)

	parentTaskID, err := c.Delegate(ctx, parent, []coordinator.WorkerDescriptor{{ID: "worker-parent", TrustScore: 0.7, MaxLoad: 1}}, CommandExecutor{Logger: cb.logger})
	if err != nil {
		return err
	}
	parentTS := waitForTerminal(c, parentTaskID, 5*time.Second)
	printResult("sub-agent-delegation (parent, gated on child)", parentTS)
	return nil
}

func runScenario(ctx context.Context, name string, cfg *config.Config) error {
	switch name {
	case "happy-path":
		return scenarioHappyPath(ctx, cfg)
	case "postcondition-failure":
		return scenarioPostconditionFailure(ctx, cfg)
	case "timeout-recovery":
		return scenarioTimeoutRecovery(ctx, cfg)
	case "permission-denial":
		return scenarioPermissionDenial(ctx, cfg)
	case "breaker-trip":
		return scenarioCircuitBreakerTrip(ctx, cfg)
	case "sub-agent-delegation":
		return scenarioSubAgentDelegation(ctx, cfg)
	default:
		fmt.Fprintf(os.Stderr, "unknown scenario %q\n", name)
		os.Exit(1)
		return nil
	}
}
