package core

import "errors"

// CompressionThreshold is the history length above which the conversation is
// summarised before the next model invocation.
const CompressionThreshold = 15

var (
	ErrTurnInProgress  = errors.New("a turn is already in progress")
	ErrInvocationLimit = errors.New("maximum model invocations per turn reached")
)

// State is a node of the turn state machine.
type State int

const (
	StateInvoking State = iota
	StateRouting
	StateDispatching
	StateCompressing
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInvoking:
		return "invoking"
	case StateRouting:
		return "routing"
	case StateDispatching:
		return "dispatching"
	case StateCompressing:
		return "compressing"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Snapshot is the part of the conversation the transition function looks at.
type Snapshot struct {
	HistoryLen       int
	PendingToolCalls int
}

// Next returns the state that follows s. Compression wins over dispatch so
// that a long history is summarised even while tool calls are outstanding.
func Next(s State, snap Snapshot) State {
	switch s {
	case StateInvoking:
		return StateRouting
	case StateRouting:
		if snap.HistoryLen > CompressionThreshold {
			return StateCompressing
		}
		if snap.PendingToolCalls > 0 {
			return StateDispatching
		}
		return StateTerminated
	case StateDispatching, StateCompressing:
		return StateInvoking
	default:
		return StateTerminated
	}
}
