package fusion

// State is the lifecycle phase of the fusion engine
type State int32

const (
	StateScoring State = iota
	StateDecided
	StateOutcomeRecorded
	StateOptimizing
)

func (s State) String() string {
	switch s {
	case StateScoring:
		return "scoring"
	case StateDecided:
		return "decided"
	case StateOutcomeRecorded:
		return "outcome_recorded"
	case StateOptimizing:
		return "optimizing"
	default:
		return "unknown"
	}
}

// transitions lists the expected next phases. The cycle has no terminal state.
var transitions = map[State][]State{
	StateScoring:         {StateDecided},
	StateDecided:         {StateScoring, StateOutcomeRecorded},
	StateOutcomeRecorded: {StateScoring, StateOutcomeRecorded, StateOptimizing},
	StateOptimizing:      {StateScoring},
}

// CanTransition reports whether to is an expected successor of s
func (s State) CanTransition(to State) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
