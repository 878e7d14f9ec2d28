package intent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/synapsed-labs/swarmkit/swarmcore"
)

func TestApplyValidTransitions(t *testing.T) {
	id := swarmcore.NewID()

	next, err := apply("test", id, StatusPending, transAccept)
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, next)

	next, err = apply("test", id, StatusReady, transStart)
	assert.NoError(t, err)
	assert.Equal(t, StatusExecuting, next)

	next, err = apply("test", id, StatusExecuting, transRewind)
	assert.NoError(t, err)
	assert.Equal(t, StatusReady, next)
}

func TestApplyIllegalTransition(t *testing.T) {
	id := swarmcore.NewID()
	_, err := apply("test", id, StatusPending, transFinish)
	assert.Error(t, err)
}

func TestApplyCancelFromAnyState(t *testing.T) {
	id := swarmcore.NewID()
	next, err := apply("test", id, StatusExecuting, transCancel)
	assert.NoError(t, err)
	assert.Equal(t, StatusCancelled, next)
}

func TestApplyNoTransitionsFromTerminal(t *testing.T) {
	id := swarmcore.NewID()
	_, err := apply("test", id, StatusSucceeded, transStart)
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusSucceeded.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusExecuting.Terminal())
}
