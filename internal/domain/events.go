package domain

// EventType represents the type of room event
type EventType string

const (
	EventJoin   EventType = "join"
	EventLeave  EventType = "leave"
	EventInput  EventType = "input"
	EventPoints EventType = "points"
	EventWin    EventType = "win"
	EventReset  EventType = "reset"

	// EventState carries a full room view to a single subscriber
	EventState EventType = "state"
)

// RoomEvent represents something that happened in a room. Time is a
// logical timestamp in milliseconds, non-decreasing within one room.
type RoomEvent struct {
	Type     EventType   `json:"type"`
	RoomID   RoomID      `json:"roomId"`
	PlayerID PlayerID    `json:"playerId,omitempty"`
	Payload  interface{} `json:"payload,omitempty"`
	Time     int64       `json:"time"`
}

// Payload types for different events

// InputPayload is sent when a word is accepted
type InputPayload struct {
	Word string `json:"word"`
	Time int64  `json:"time"`
}

// PointsPayload is sent whenever a player's points change
type PointsPayload struct {
	Points int          `json:"points"`
	Total  int          `json:"total"`
	Reason RejectReason `json:"reason,omitempty"`
	Word   string       `json:"word,omitempty"`
}

// WinPayload is sent once when the win condition names a winner
type WinPayload struct {
	Points int `json:"points"`
	Round  int `json:"round"`
}

// ResetPayload is sent when a new round starts
type ResetPayload struct {
	Round    int           `json:"round"`
	Previous *RoundSummary `json:"previous,omitempty"`
}
