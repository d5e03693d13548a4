package pipeline

import "ytdigest/internal/services"

// State is a pipeline state. Runs move forward through the stages in order
// and end in Done or Failed.
type State int

const (
	StateFetching State = iota
	StateValidating
	StateSummarizing
	StatePersisting
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "Fetching"
	case StateValidating:
		return "Validating"
	case StateSummarizing:
		return "Summarizing"
	case StatePersisting:
		return "Persisting"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Stage returns the lowercase stage name used in errors and log fields.
func (s State) Stage() string {
	switch s {
	case StateFetching:
		return services.StageFetching
	case StateValidating:
		return services.StageValidating
	case StateSummarizing:
		return services.StageSummarizing
	case StatePersisting:
		return services.StagePersisting
	default:
		return ""
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDone || s == StateFailed
}

// next is the only forward edge out of s; Failed is reachable from any
// working state.
func (s State) next() State {
	if s >= StatePersisting {
		return StateDone
	}
	return s + 1
}

// ParseState maps a stored state name back to a State.
func ParseState(name string) (State, bool) {
	for s := StateFetching; s <= StateFailed; s++ {
		if s.String() == name || s.Stage() == name {
			return s, true
		}
	}
	return 0, false
}
