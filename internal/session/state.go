package session

// State is the authentication state of the Manager.
type State string

// Manager states.
const (
	StateUninitialized   State = "uninitialized"
	StateInitializing    State = "initializing"
	StateAuthenticated   State = "authenticated"
	StateUnauthenticated State = "unauthenticated"
)

// validTransitions lists permitted moves. A resolved state never returns to
// uninitialized or initializing.
var validTransitions = map[State][]State{
	StateUninitialized: {
		StateInitializing,
		StateAuthenticated,
		StateUnauthenticated,
	},
	StateInitializing: {
		StateAuthenticated,
		StateUnauthenticated,
	},
	StateAuthenticated: {
		StateAuthenticated,
		StateUnauthenticated,
	},
	StateUnauthenticated: {
		StateAuthenticated,
		StateUnauthenticated,
	},
}

// IsTransitionAllowed reports whether moving from one state to another is valid.
func IsTransitionAllowed(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
