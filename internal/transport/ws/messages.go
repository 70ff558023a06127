package ws

import (
	"encoding/json"
	"time"

	"wordchain/internal/app"
	"wordchain/internal/domain"
	"wordchain/internal/hub"
)

// MessageType represents the type of WebSocket message
type MessageType string

// Client → Server message types
const (
	MsgSubmit MessageType = "submit"
	MsgLeave  MessageType = "leave"
	MsgPing   MessageType = "ping"
)

// Server → Client message types. Room events keep their event type
// (join, leave, input, points, win, reset).
const (
	MsgConnected  MessageType = "connected"
	MsgSuperseded MessageType = "superseded"
	MsgError      MessageType = "error"
	MsgPong       MessageType = "pong"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type     MessageType     `json:"type"`
	RoomID   domain.RoomID   `json:"roomId,omitempty"`
	PlayerID domain.PlayerID `json:"playerId,omitempty"`
	Payload  interface{}     `json:"payload,omitempty"`
	Time     int64           `json:"time"`
	Sequence uint64          `json:"sequence,omitempty"`
}

// NewServerMessage creates a new server message stamped with the current time
func NewServerMessage(msgType MessageType, payload interface{}) *ServerMessage {
	return &ServerMessage{
		Type:    msgType,
		Payload: payload,
		Time:    time.Now().UnixMilli(),
	}
}

// EventMessage converts a hub delivery to its wire form. The initial room
// view becomes the connected message.
func EventMessage(d hub.Delivery) *ServerMessage {
	ev := d.Event
	msgType := MessageType(ev.Type)
	payload := ev.Payload
	if ev.Type == domain.EventState {
		msgType = MsgConnected
		if info, ok := ev.Payload.(app.RoomInfo); ok {
			payload = &ConnectedPayload{PlayerID: ev.PlayerID, Room: info}
		}
	}
	return &ServerMessage{
		Type:     msgType,
		RoomID:   ev.RoomID,
		PlayerID: ev.PlayerID,
		Payload:  payload,
		Time:     ev.Time,
		Sequence: d.Sequence,
	}
}

// Client message payloads

// SubmitPayload is the payload for submit message. Time is optional and
// defaults to the server clock.
type SubmitPayload struct {
	Word string `json:"word"`
	Time int64  `json:"time,omitempty"`
}

// Server message payloads

// ConnectedPayload is the payload for connected message
type ConnectedPayload struct {
	PlayerID domain.PlayerID `json:"playerId"`
	Room     app.RoomInfo    `json:"room"`
}

// ErrorPayload is the payload for error message
type ErrorPayload struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Reason  domain.RejectReason `json:"reason,omitempty"`
	Word    string              `json:"word,omitempty"`
}

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeRejected       = "WORD_REJECTED"
	ErrCodeRateLimited    = "RATE_LIMITED"
	ErrCodeNotMember      = "NOT_MEMBER"
	ErrCodeRoomNotFound   = "ROOM_NOT_FOUND"
	ErrCodeInternalError  = "INTERNAL_ERROR"
)
