package coordinator

import (
	"time"

	"github.com/synapsed-labs/swarmkit/intent"
)

// Screening thresholds. These are heuristics, not invariants: crossing
// one never blocks Delegate, it only adds a warning to the task's
// report.
const (
	screenMaxPermissions        = 10
	screenMinStepsForCheckpoint = 3
	screenMinPerStepTime        = 5 * time.Minute
	screenMaxSubAgents          = 8
)

// Screen inspects in for red flags a malicious or careless delegator
// might produce, ahead of worker selection. It never rejects an
// intent outright — delegate() has no invariant for that — it only
// returns advisory warnings that Delegate attaches to the task's
// TaskStatus so a caller can weigh a "succeeded" report against how
// the intent looked going in.
func Screen(in *intent.Intent) []string {
	var warnings []string

	allow := in.Ctx.AllowList()
	permCount := len(allow.Commands) + len(allow.Paths) + len(allow.NetworkHosts) + len(allow.EnvKeys)
	if permCount > screenMaxPermissions {
		warnings = append(warnings, "excessive permissions requested")
	}

	hasCheckpoint := false
	for _, step := range in.Steps {
		if step.CheckpointMarker {
			hasCheckpoint = true
			break
		}
	}
	if !hasCheckpoint && len(in.Steps) >= screenMinStepsForCheckpoint {
		warnings = append(warnings, "multi-step task with no checkpoint markers — irreversible on failure")
	}

	if len(allow.NetworkHosts) > 0 && len(in.Postconditions) == 0 {
		warnings = append(warnings, "network access granted with no postconditions to verify the outcome — potential exfiltration vector")
	}

	budget := in.Ctx.Budget()
	if budget.MaxWallTime > 0 && len(in.Steps) > 0 {
		perStep := budget.MaxWallTime / time.Duration(len(in.Steps))
		if perStep < screenMinPerStepTime {
			warnings = append(warnings, "wall-time budget too tight for the declared step count — potential pressure tactic")
		}
	}

	if budget.MaxSubAgents > screenMaxSubAgents {
		warnings = append(warnings, "sub-agent budget unusually high — resource exhaustion risk")
	}

	return warnings
}
