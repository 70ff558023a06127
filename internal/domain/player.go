package domain

import (
	"fmt"
	"sort"
	"strconv"
)

// PlayerID identifies a player. Zero is reserved for "no player".
type PlayerID int64

// NoPlayer is the zero PlayerID.
const NoPlayer PlayerID = 0

// Valid reports whether the id can name a real player.
func (id PlayerID) Valid() bool {
	return id > 0
}

// String returns the decimal form used on the wire and in encoded state
func (id PlayerID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParsePlayerID parses a decimal player id and rejects zero and negatives.
func ParsePlayerID(s string) (PlayerID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return NoPlayer, fmt.Errorf("parse player id %q: %w", s, err)
	}
	id := PlayerID(n)
	if !id.Valid() {
		return NoPlayer, fmt.Errorf("parse player id %q: %w", s, ErrInvalidPlayerID)
	}
	return id, nil
}

// RoomID identifies a room in the directory.
type RoomID int64

// Valid reports whether the id can name a real room.
func (id RoomID) Valid() bool {
	return id > 0
}

// String returns the decimal form of the room id
func (id RoomID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// ParseRoomID parses a decimal room id.
func ParseRoomID(s string) (RoomID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse room id %q: %w", s, err)
	}
	id := RoomID(n)
	if !id.Valid() {
		return 0, fmt.Errorf("parse room id %q: %w", s, ErrRoomNotFound)
	}
	return id, nil
}

// SortPlayerIDs sorts ids ascending in place and returns them.
func SortPlayerIDs(ids []PlayerID) []PlayerID {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// PlayerInfo is the public view of one player's standing in a room
type PlayerInfo struct {
	ID      PlayerID `json:"id"`
	Points  int      `json:"points"`
	Penalty int      `json:"penalty"`
	InRoom  bool     `json:"inRoom"`
	Words   int      `json:"words"`
}
