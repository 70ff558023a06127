package domain

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrRoomFull        = errors.New("room is full")
	ErrPlayerNotFound  = errors.New("player not found")
	ErrInvalidPlayerID = errors.New("invalid player id")
	ErrInvalidConfig   = errors.New("invalid room config")
	ErrInvalidPenalty  = errors.New("penalty must be positive")
	ErrInvalidPhase    = errors.New("invalid action for current phase")
)

// RejectReason names why a submitted word was refused. The values are the
// wire strings clients already understand.
type RejectReason string

const (
	ReasonInvalidFormat   RejectReason = "wordError"
	ReasonDuplicateWord   RejectReason = "alreadyIn"
	ReasonWrongChainStart RejectReason = "wrongStart"
	ReasonNotInDictionary RejectReason = "notInDic"
	ReasonNotYourTurn     RejectReason = "notYourTurn"
	ReasonGameOver        RejectReason = "gameOver"
	ReasonNotMember       RejectReason = "notMember"
)

// Validation reports whether the reason comes from checking the word itself,
// as opposed to the room or the player's standing.
func (r RejectReason) Validation() bool {
	switch r {
	case ReasonInvalidFormat, ReasonDuplicateWord, ReasonWrongChainStart, ReasonNotYourTurn:
		return true
	}
	return false
}

// Rejection is returned by SubmitWord when the word is refused. No room
// state changes when a Rejection is returned.
type Rejection struct {
	Reason RejectReason
	Text   string
}

func (r *Rejection) Error() string {
	if r.Text == "" {
		return fmt.Sprintf("word rejected: %s", r.Reason)
	}
	return fmt.Sprintf("word %q rejected: %s", r.Text, r.Reason)
}

// Is matches any rejection with the same reason, so callers can use
// errors.Is(err, ErrDuplicateWord).
func (r *Rejection) Is(target error) bool {
	t, ok := target.(*Rejection)
	return ok && t.Reason == r.Reason
}

// Rejections for errors.Is comparisons
var (
	ErrInvalidWordFormat = &Rejection{Reason: ReasonInvalidFormat}
	ErrDuplicateWord     = &Rejection{Reason: ReasonDuplicateWord}
	ErrWrongChainStart   = &Rejection{Reason: ReasonWrongChainStart}
	ErrNotInDictionary   = &Rejection{Reason: ReasonNotInDictionary}
	ErrNotYourTurn       = &Rejection{Reason: ReasonNotYourTurn}
	ErrGameOver          = &Rejection{Reason: ReasonGameOver}
	ErrNotMember         = &Rejection{Reason: ReasonNotMember}
)

func reject(reason RejectReason, text string) *Rejection {
	return &Rejection{Reason: reason, Text: text}
}

// AsRejection unwraps err into a Rejection if it is one.
func AsRejection(err error) (*Rejection, bool) {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}
