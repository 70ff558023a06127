package domain

import "fmt"

// Defaults for room creation. Threshold length and win points match what
// the room creation form has always offered.
const (
	DefaultCapacity          = 4
	DefaultScoreLength       = 4
	DefaultWinPoints         = 100
	DefaultDictionaryPenalty = 1
)

// ScoringRule selects a scoring policy and its parameter
type ScoringRule struct {
	ID     int `json:"id"`
	Length int `json:"length,omitempty"` // Threshold N for the +1overN policies
}

// WinRule selects a win condition policy and its parameter
type WinRule struct {
	ID     int `json:"id"`
	Points int `json:"points,omitempty"` // Target for first-to-N
}

// RoomConfig is fixed at creation and never changes for the life of a room
type RoomConfig struct {
	Capacity          int         `json:"capacity"`
	Scoring           ScoringRule `json:"scoring"`
	Win               WinRule     `json:"win"`
	Language          int         `json:"language"`
	Creator           PlayerID    `json:"creator,omitempty"`
	ForbidConsecutive bool        `json:"forbidConsecutive,omitempty"`
	RejectPenalty     int         `json:"rejectPenalty,omitempty"`
	DictionaryPenalty int         `json:"dictionaryPenalty"`
}

// DefaultRoomConfig returns the default room settings
func DefaultRoomConfig() RoomConfig {
	return RoomConfig{
		Capacity:          DefaultCapacity,
		Scoring:           ScoringRule{ID: 0, Length: DefaultScoreLength},
		Win:               WinRule{ID: 0, Points: DefaultWinPoints},
		DictionaryPenalty: DefaultDictionaryPenalty,
	}
}

// ScoreLength returns the threshold length, falling back to the default.
func (c RoomConfig) ScoreLength() int {
	if c.Scoring.Length > 0 {
		return c.Scoring.Length
	}
	return DefaultScoreLength
}

// WinPoints returns the first-to-N target, falling back to the default.
func (c RoomConfig) WinPoints() int {
	if c.Win.Points > 0 {
		return c.Win.Points
	}
	return DefaultWinPoints
}

// Validate checks the config against the directory's capacity ceiling.
func (c RoomConfig) Validate(maxCapacity int) error {
	if c.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be at least 1", ErrInvalidConfig)
	}
	if maxCapacity > 0 && c.Capacity > maxCapacity {
		return fmt.Errorf("%w: capacity %d exceeds %d", ErrInvalidConfig, c.Capacity, maxCapacity)
	}
	if c.Scoring.Length < 0 || c.Win.Points < 0 {
		return fmt.Errorf("%w: policy parameters must not be negative", ErrInvalidConfig)
	}
	if c.RejectPenalty < 0 || c.DictionaryPenalty < 0 {
		return fmt.Errorf("%w: penalties must not be negative", ErrInvalidConfig)
	}
	if c.Creator < 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, ErrInvalidPlayerID)
	}
	return nil
}
