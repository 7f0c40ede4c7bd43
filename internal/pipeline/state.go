package pipeline

import "sync/atomic"

// State is where a task is in its loop
type State int32

const (
	StateIdle State = iota
	// producer states
	StateReading
	StateInserting
	// consumer states
	StateWaiting
	StateTransforming
	StateEmitting
	StateDiscarding
	StateDone
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateReading:
		return "reading"
	case StateInserting:
		return "inserting"
	case StateWaiting:
		return "waiting"
	case StateTransforming:
		return "transforming"
	case StateEmitting:
		return "emitting"
	case StateDiscarding:
		return "discarding"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

type stateCell struct {
	v atomic.Int32
}

func (c *stateCell) set(s State) {
	c.v.Store(int32(s))
}

func (c *stateCell) get() State {
	return State(c.v.Load())
}
