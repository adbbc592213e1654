// Package lifecycle runs a long-lived process such as the SportsLeague
// HTTP service through a small state machine with start and stop hooks,
// tracing and graceful shutdown.
//
// The flow for a healthy service is:
//
//	Unknown → Starting → Running → Stopping → Stopped
//
// Any non-terminal state may move to Failed, and both terminal states
// may move back to Starting for a restart.
//
// [Service] guards its state with a [sync.RWMutex]. Hooks run outside the
// lock, so they may read [Service.State] without deadlocking.
package lifecycle

// State is a lifecycle state. The zero value is not valid; a new
// [Service] starts in [StateUnknown].
type State string

const (
	// StateUnknown is the state of a built service that has not started.
	StateUnknown State = "unknown"

	// StateStarting is held while the start hooks run.
	StateStarting State = "starting"

	// StateRunning is the only state in which [Service.Health] passes.
	StateRunning State = "running"

	// StateStopping is held while the stop hooks drain in-flight work.
	StateStopping State = "stopping"

	// StateStopped follows a clean shutdown.
	StateStopped State = "stopped"

	// StateFailed follows a failed hook or an error reported through
	// [Service.Fail].
	StateFailed State = "failed"
)

func (s State) String() string {
	return string(s)
}

// Valid reports whether s is a known state.
func (s State) Valid() bool {
	switch s {
	case StateUnknown, StateStarting, StateRunning,
		StateStopping, StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether s is [StateStopped] or [StateFailed].
func (s State) IsTerminal() bool {
	switch s {
	case StateStopped, StateFailed:
		return true
	default:
		return false
	}
}

// validTransitions is the transition matrix:
//
//	Unknown  → Starting, Failed
//	Starting → Running, Failed, Stopping
//	Running  → Stopping, Failed
//	Stopping → Stopped, Failed
//	Stopped  → Starting
//	Failed   → Starting
var validTransitions = map[State][]State{
	StateUnknown:  {StateStarting, StateFailed},
	StateStarting: {StateRunning, StateFailed, StateStopping},
	StateRunning:  {StateStopping, StateFailed},
	StateStopping: {StateStopped, StateFailed},
	StateStopped:  {StateStarting},
	StateFailed:   {StateStarting},
}

// ValidTransition reports whether from may move to to. A state never
// transitions to itself.
func ValidTransition(from, to State) bool {
	if from == to {
		return false
	}
	for _, t := range validTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
