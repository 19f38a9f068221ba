package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNext_Linear(t *testing.T) {
	state := StateDetecting
	var visited []State
	for state != StateDone {
		visited = append(visited, state)
		next, err := Next(state)
		require.NoError(t, err)
		state = next
	}
	assert.Equal(t, PhaseStates(), visited)
}

func TestNext_TerminalStates(t *testing.T) {
	for _, s := range []State{StateDone, StateAborted} {
		_, err := Next(s)
		assert.Error(t, err, s)
	}
}
