package domain

// ScoringPolicy maps an accepted word to a point delta. Implementations
// must be pure: the same word and config always give the same delta.
type ScoringPolicy interface {
	ID() int
	Description() string
	Score(w Word, cfg RoomConfig) int
}

// WinPolicy declares a winner from the current point totals, if any.
type WinPolicy interface {
	ID() int
	Description() string
	Winner(cfg RoomConfig, points map[PlayerID]int) (PlayerID, bool)
}

// Penalty is the accrued negative adjustment of one player outside of
// word-derived scoring.
type Penalty struct {
	PlayerID  PlayerID `json:"playerId"`
	Magnitude int      `json:"magnitude"`
}
