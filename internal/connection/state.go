package connection

import "time"

// State is the lifecycle state of a Manager.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateReconnecting
	StateFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// StateEvent describes a state change. During reconnection an event with
// Old == New is emitted for every attempt.
type StateEvent struct {
	Old     State
	New     State
	Attempt int   // Reconnect attempt, 0 outside reconnection
	Err     error // Cause of a drop or terminal failure
	At      time.Time
}

// Listener observes state changes. It runs on the goroutine that made the
// change and must not block or call back into the manager's Close.
type Listener func(StateEvent)
