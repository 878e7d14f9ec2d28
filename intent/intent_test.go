package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/synapsed-labs/swarmkit/scope"
	"github.com/synapsed-labs/swarmkit/verifier"
)

func rootCtx() *scope.Context {
	allow := scope.NewAllowList()
	allow.Commands["echo"] = struct{}{}
	allow.Paths = []string{"/tmp/work"}
	return scope.New(nil, allow, scope.Budget{})
}

func childCtxUnder(parent *scope.Context, path string) *scope.Context {
	allow := scope.NewAllowList()
	allow.Paths = []string{path}
	c, err := parent.Child(allow, scope.Budget{})
	if err != nil {
		panic(err)
	}
	return c
}

func TestIntentBuilderAssemblesTree(t *testing.T) {
	ctx := rootCtx()
	pre := verifier.File("workdir exists", verifier.FileSpec{Path: "/tmp/work", Check: verifier.FileExists})
	post := verifier.File("output written", verifier.FileSpec{Path: "/tmp/work/out.txt", Check: verifier.FileExists})

	in := NewIntentBuilder("write a report", ctx).
		WithPrecondition(pre).
		WithPostcondition(post).
		WithStep(NewStep(0, Action{Kind: ActionCommand})).
		WithStep(NewStep(1, Action{Kind: ActionFileWrite})).
		Build()

	require.Len(t, in.Steps, 2)
	assert.Equal(t, 0, in.Steps[0].Slot)
	assert.Equal(t, 1, in.Steps[1].Slot)
	assert.Equal(t, StatusPending, in.Status)
}

func TestIntentPassBlockedByRequiredChild(t *testing.T) {
	ctx := rootCtx()
	child := NewIntentBuilder("sub-goal", childCtxUnder(ctx, "/tmp/work/sub")).Build()

	parent := NewIntentBuilder("goal", ctx).WithChild(child, true).Build()

	require.NoError(t, parent.Accept())
	require.NoError(t, parent.Start())
	require.NoError(t, parent.Finish())

	err := parent.Pass()
	assert.Error(t, err, "required child has not succeeded yet")

	require.NoError(t, child.Accept())
	require.NoError(t, child.Start())
	require.NoError(t, child.Finish())
	require.NoError(t, child.Pass())

	require.NoError(t, parent.Pass())
}

func TestIntentPassIgnoresNonRequiredChild(t *testing.T) {
	ctx := rootCtx()
	child := NewIntentBuilder("optional sub-goal", childCtxUnder(ctx, "/tmp/work/opt")).Build()
	parent := NewIntentBuilder("goal", ctx).WithChild(child, false).Build()

	require.NoError(t, parent.Accept())
	require.NoError(t, parent.Start())
	require.NoError(t, parent.Finish())
	require.NoError(t, parent.Pass())
}

func TestIntentCancelCascades(t *testing.T) {
	ctx := rootCtx()
	child := NewIntentBuilder("sub", childCtxUnder(ctx, "/tmp/work/sub")).Build()
	step := NewStep(0, Action{Kind: ActionCommand})
	parent := NewIntentBuilder("goal", ctx).WithChild(child, true).WithStep(step).Build()

	require.NoError(t, parent.Cancel())
	assert.Equal(t, StatusCancelled, parent.Status)
	assert.Equal(t, StatusCancelled, child.Status)
	assert.Equal(t, StatusCancelled, step.Status)
}

func TestLastCheckpointTracksMostRecentSucceeded(t *testing.T) {
	ctx := rootCtx()
	s0 := NewStep(0, Action{Kind: ActionCommand})
	s0.CheckpointMarker = true
	s1 := NewStep(1, Action{Kind: ActionCommand})
	in := NewIntentBuilder("goal", ctx).WithStep(s0).WithStep(s1).Build()

	assert.Equal(t, -1, in.LastCheckpoint())

	require.NoError(t, s0.Accept())
	require.NoError(t, s0.Start())
	require.NoError(t, s0.Finish())
	require.NoError(t, s0.Pass())

	assert.Equal(t, 0, in.LastCheckpoint())
}
