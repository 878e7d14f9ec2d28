package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/synapsed-labs/swarmkit/intent"
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

// CommandExecutor is the reference StepExecutor (§6's "external
// WorkerExecutor collaborator"): it interprets a Step's Action by
// ActionKind, running the concrete effect the coordinator core never
// touches directly.
type CommandExecutor struct {
	Logger swarmcore.Logger
}

func (e CommandExecutor) logger() swarmcore.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return swarmcore.NoOpLogger{}
}

// Execute dispatches on step.Action.Kind; an unsupported kind fails
// with a worker fault. Permission checks are the verifier's job
// (pre/postconditions); this executor only produces the effect.
func (e CommandExecutor) Execute(ctx context.Context, workerID string, ctxScope *scope.Context, step *intent.Step) error {
	switch step.Action.Kind {
	case intent.ActionCommand:
		return e.execCommand(ctx, step)
	case intent.ActionFileWrite:
		return e.execFileWrite(step)
	case intent.ActionHTTPCall:
		return e.execHTTPCall(ctx, step)
	default:
		return swarmcore.NewRuntimeError("executor.execute", swarmcore.KindWorkerFault, step.ID().String(),
			fmt.Sprintf("worker %s: unsupported action kind %s", workerID, step.Action.Kind), swarmcore.ErrWorkerFault)
	}
}

func (e CommandExecutor) execCommand(ctx context.Context, step *intent.Step) error {
	name, _ := step.Action.Payload["cmd"].(string)
	args, _ := step.Action.Payload["args"].([]string)
	cmd := exec.CommandContext(ctx, name, args...)
	if err := cmd.Run(); err != nil {
		e.logger().Warn("command action failed", map[string]interface{}{"cmd": name, "error": err.Error()})
	}
	return nil
}

func (e CommandExecutor) execFileWrite(step *intent.Step) error {
	path, _ := step.Action.Payload["path"].(string)
	content, _ := step.Action.Payload["content"].(string)
	return os.WriteFile(path, []byte(content), 0o644)
}

func (e CommandExecutor) execHTTPCall(ctx context.Context, step *intent.Step) error {
	url, _ := step.Action.Payload["url"].(string)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return swarmcore.NewRuntimeError("executor.http_call", swarmcore.KindWorkerFault, step.ID().String(),
			err.Error(), swarmcore.ErrWorkerFault)
	}
	defer resp.Body.Close()
	return nil
}

// SleepyExecutor wraps another StepExecutor to simulate a slow worker
// for the timeout+recovery scenario: its first attempt sleeps for
// Sleep and then fails with a timeout-expired error; later attempts
// delegate to Inner without sleeping.
type SleepyExecutor struct {
	Inner    CommandExecutor
	Sleep    time.Duration
	attempts int
}

func (e *SleepyExecutor) Execute(ctx context.Context, workerID string, ctxScope *scope.Context, step *intent.Step) error {
	e.attempts++
	if e.attempts == 1 {
		select {
		case <-time.After(e.Sleep):
		case <-ctx.Done():
			return ctx.Err()
		}
		return swarmcore.NewRuntimeError("executor.sleepy", swarmcore.KindTimeoutExpired, step.ID().String(),
			fmt.Sprintf("worker %s: first attempt expired after %s", workerID, e.Sleep), swarmcore.ErrTimeoutExpired)
	}
	return e.Inner.Execute(ctx, workerID, ctxScope, step)
}

// FlakyExecutor fails its first FailFirst attempts with a worker
// fault, then delegates to Inner.
type FlakyExecutor struct {
	Inner     CommandExecutor
	FailFirst int
	attempts  int
}

func (e *FlakyExecutor) Execute(ctx context.Context, workerID string, ctxScope *scope.Context, step *intent.Step) error {
	e.attempts++
	if e.attempts <= e.FailFirst {
		return swarmcore.NewRuntimeError("executor.flaky", swarmcore.KindWorkerFault, step.ID().String(),
			"simulated worker fault", swarmcore.ErrWorkerFault)
	}
	return e.Inner.Execute(ctx, workerID, ctxScope, step)
}
