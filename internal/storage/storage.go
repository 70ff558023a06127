// Package storage defines the persistence contract for room snapshots.
//
// The engine treats a snapshot as an opaque record keyed by room id: the
// encoded ledger state plus the metadata needed to rebuild the room.
package storage

import (
	"context"
	"errors"
	"time"

	"wordchain/internal/domain"
)

var (
	// ErrNotFound indicates a requested snapshot is missing.
	ErrNotFound = errors.New("snapshot not found")
	// ErrStaleVersion indicates a save was older than what is stored.
	ErrStaleVersion = errors.New("snapshot version is older than stored")
)

// Snapshot is one persisted room.
type Snapshot struct {
	RoomID    domain.RoomID
	State     string
	Players   []domain.PlayerID
	Config    domain.RoomConfig
	Round     int
	History   []*domain.RoundSummary
	Version   uint64
	UpdatedAt time.Time
}

// Clone returns a copy that shares no slices with s.
func (s Snapshot) Clone() Snapshot {
	out := s
	if s.Players != nil {
		out.Players = append([]domain.PlayerID(nil), s.Players...)
	}
	if s.History != nil {
		out.History = make([]*domain.RoundSummary, len(s.History))
		for i, r := range s.History {
			out.History[i] = r.Clone()
		}
	}
	return out
}

// SnapshotStore persists room snapshots.
//
// SaveRoomSnapshot is an upsert that never replaces a stored snapshot with
// a lower version; such saves fail with ErrStaleVersion. Saving the stored
// version again overwrites it. DeleteRoomSnapshot of a missing room is not
// an error. ListRoomSnapshots returns snapshots ordered by room id.
type SnapshotStore interface {
	SaveRoomSnapshot(ctx context.Context, snap Snapshot) error
	LoadRoomSnapshot(ctx context.Context, id domain.RoomID) (Snapshot, error)
	ListRoomSnapshots(ctx context.Context) ([]Snapshot, error)
	DeleteRoomSnapshot(ctx context.Context, id domain.RoomID) error
}
