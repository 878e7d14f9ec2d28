package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/synapsed-labs/swarmkit/intent"
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/verifier"
)

func buildIntent(t *testing.T, allow scope.AllowList, budget scope.Budget, nSteps int, checkpoint bool, withPostcondition bool) *intent.Intent {
	t.Helper()
	ctx := scope.New(nil, allow, budget)
	b := intent.NewIntentBuilder("screened-goal", ctx)
	if withPostcondition {
		b.WithPostcondition(verifier.State("always true", verifier.StateSpec{
			Eval: func([]byte) (bool, error) { return true, nil },
		}))
	}
	for i := 0; i < nSteps; i++ {
		step := intent.NewStep(i, intent.Action{Kind: intent.ActionCommand})
		if checkpoint && i == nSteps-1 {
			step.CheckpointMarker = true
		}
		b.WithStep(step)
	}
	return b.Build()
}

func TestScreenNoWarningsForModestIntent(t *testing.T) {
	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	in := buildIntent(t, allow, scope.Budget{MaxWallTime: time.Hour}, 2, true, false)

	assert.Empty(t, Screen(in))
}

func TestScreenFlagsExcessivePermissions(t *testing.T) {
	allow := scope.NewAllowList()
	for i := 0; i < screenMaxPermissions+1; i++ {
		allow.Paths = append(allow.Paths, "/tmp")
	}
	in := buildIntent(t, allow, scope.Budget{}, 1, true, false)

	assert.Contains(t, Screen(in), "excessive permissions requested")
}

func TestScreenFlagsMissingCheckpointsOverMultipleSteps(t *testing.T) {
	in := buildIntent(t, scope.NewAllowList(), scope.Budget{}, screenMinStepsForCheckpoint, false, false)

	assert.Contains(t, Screen(in), "multi-step task with no checkpoint markers — irreversible on failure")
}

func TestScreenFlagsNetworkWithoutPostconditions(t *testing.T) {
	allow := scope.NewAllowList()
	allow.NetworkHosts = append(allow.NetworkHosts, "api.example.com")
	in := buildIntent(t, allow, scope.Budget{}, 1, true, false)

	assert.Contains(t, Screen(in), "network access granted with no postconditions to verify the outcome — potential exfiltration vector")
}

func TestScreenFlagsTightDeadline(t *testing.T) {
	in := buildIntent(t, scope.NewAllowList(), scope.Budget{MaxWallTime: time.Second}, 5, true, false)

	assert.Contains(t, Screen(in), "wall-time budget too tight for the declared step count — potential pressure tactic")
}

func TestScreenFlagsExcessiveSubAgentBudget(t *testing.T) {
	in := buildIntent(t, scope.NewAllowList(), scope.Budget{MaxSubAgents: screenMaxSubAgents + 1}, 1, true, false)

	assert.Contains(t, Screen(in), "sub-agent budget unusually high — resource exhaustion risk")
}
