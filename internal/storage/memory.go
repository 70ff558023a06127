package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"wordchain/internal/domain"
)

// MemoryStore is an in-memory SnapshotStore. State is lost when the process
// restarts.
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[domain.RoomID]Snapshot
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: make(map[domain.RoomID]Snapshot)}
}

// SaveRoomSnapshot stores a copy of snap.
func (m *MemoryStore) SaveRoomSnapshot(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !snap.RoomID.Valid() {
		return fmt.Errorf("save snapshot: %w", domain.ErrRoomNotFound)
	}
	if snap.UpdatedAt.IsZero() {
		snap.UpdatedAt = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.snaps[snap.RoomID]; ok && cur.Version > snap.Version {
		return ErrStaleVersion
	}
	m.snaps[snap.RoomID] = snap.Clone()
	return nil
}

// LoadRoomSnapshot returns a copy of the stored snapshot.
func (m *MemoryStore) LoadRoomSnapshot(ctx context.Context, id domain.RoomID) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.snaps[id]
	if !ok {
		return Snapshot{}, ErrNotFound
	}
	return snap.Clone(), nil
}

// ListRoomSnapshots returns copies of all snapshots by room id.
func (m *MemoryStore) ListRoomSnapshots(ctx context.Context) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Snapshot, 0, len(m.snaps))
	for _, snap := range m.snaps {
		out = append(out, snap.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RoomID < out[j].RoomID })
	return out, nil
}

// DeleteRoomSnapshot removes a snapshot if present.
func (m *MemoryStore) DeleteRoomSnapshot(ctx context.Context, id domain.RoomID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.snaps, id)
	return nil
}
