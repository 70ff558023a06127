package domain

// RoundSummary records how a finished or reset round ended
type RoundSummary struct {
	Number  int              `json:"number"`
	Winner  PlayerID         `json:"winner,omitempty"`
	Words   int              `json:"words"`
	Points  map[PlayerID]int `json:"points"`
	EndedAt int64            `json:"endedAt"`
}

// Clone returns a copy that shares no map with r.
func (r *RoundSummary) Clone() *RoundSummary {
	if r == nil {
		return nil
	}
	out := *r
	if r.Points != nil {
		out.Points = make(map[PlayerID]int, len(r.Points))
		for id, p := range r.Points {
			out.Points[id] = p
		}
	}
	return &out
}

// ReplayScores recomputes word-derived points by running every word in the
// ledger through the scoring policy. Penalties are not included.
func ReplayScores(words []Word, policy ScoringPolicy, cfg RoomConfig) map[PlayerID]int {
	scores := make(map[PlayerID]int)
	for _, w := range words {
		scores[w.PlayerID] += policy.Score(w, cfg)
	}
	return scores
}

// ApplyPenalties subtracts penalty magnitudes from scores in place.
func ApplyPenalties(scores map[PlayerID]int, penalties []Penalty) map[PlayerID]int {
	for _, p := range penalties {
		scores[p.PlayerID] -= p.Magnitude
	}
	return scores
}
