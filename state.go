package extkit

// State represents the lifecycle state of an extension.
type State int

// Extension states.
const (
	// StateUnloaded - Extension is not loaded.
	StateUnloaded State = iota

	// StateLoaded - Extension code is loaded but not activated.
	StateLoaded

	// StateActivating - Extension is being activated.
	StateActivating

	// StateActive - Extension is active and running.
	StateActive

	// StateDeactivating - Extension is being deactivated.
	StateDeactivating

	// StateFailed - Extension failed to load or activate.
	StateFailed
)

// String returns a string representation of the state.
func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoaded:
		return "loaded"
	case StateActivating:
		return "activating"
	case StateActive:
		return "active"
	case StateDeactivating:
		return "deactivating"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// IsUsable returns true if the extension can be called (loaded or active).
func (s State) IsUsable() bool {
	return s == StateLoaded || s == StateActive
}
