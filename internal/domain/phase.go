package domain

// Phase represents the current phase of a room's game
type Phase string

const (
	PhaseOpen     Phase = "OPEN"     // Players join and submit words
	PhaseFinished Phase = "FINISHED" // A winner was declared, submissions are refused
)

// String returns the string representation of the phase
func (p Phase) String() string {
	return string(p)
}

// CanTransitionTo checks if a transition from current phase to target phase is valid
func (p Phase) CanTransitionTo(target Phase) bool {
	validTransitions := map[Phase][]Phase{
		PhaseOpen:     {PhaseFinished, PhaseOpen}, // Win, or reset of an unfinished round
		PhaseFinished: {PhaseOpen},                // Reset for a new round
	}

	allowed, ok := validTransitions[p]
	if !ok {
		return false
	}

	for _, phase := range allowed {
		if phase == target {
			return true
		}
	}
	return false
}
