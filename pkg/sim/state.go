package sim

// State is a run's position in its lifecycle. Transitions only move forward:
// Idle, Building, Running, then exactly one of the terminal states.
type State string

const (
	StateIdle      State = "idle"
	StateBuilding  State = "building"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
	StateCancelled State = "cancelled"
)

// Terminal reports whether the state is final
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	}
	return false
}

// validNext reports whether a transition is allowed
func validNext(from, to State) bool {
	switch from {
	case StateIdle:
		return to == StateBuilding || to == StateCancelled
	case StateBuilding:
		return to == StateRunning || to == StateFailed || to == StateCancelled
	case StateRunning:
		return to.Terminal()
	}
	return false
}
