package orchestrator

import (
	"fmt"

	"github.com/conn-castle/devsetup/internal/messages"
)

// State is a node of the installation state machine.
type State string

const (
	StateDetecting   State = "Detecting"
	StateBaseSetup   State = "BaseSetup"
	StateLanguages   State = "Languages"
	StateDevTools    State = "DevTools"
	StateConfiguring State = "Configuring"
	StateValidating  State = "Validating"
	StateFinalizing  State = "Finalizing"
	StateDone        State = "Done"
	StateAborted     State = "Aborted"
)

// phaseStates lists the phase states in transition order.
var phaseStates = []State{
	StateDetecting,
	StateBaseSetup,
	StateLanguages,
	StateDevTools,
	StateConfiguring,
	StateValidating,
	StateFinalizing,
}

// PhaseStates returns the phase states in transition order.
func PhaseStates() []State {
	return append([]State(nil), phaseStates...)
}

// Next returns the state entered when s completes. Done and Aborted are terminal.
func Next(s State) (State, error) {
	for i, state := range phaseStates {
		if state != s {
			continue
		}
		if i == len(phaseStates)-1 {
			return StateDone, nil
		}
		return phaseStates[i+1], nil
	}
	return "", fmt.Errorf(messages.OrchestratorNoSuccessorFmt, s)
}
