// Package storagetest holds the behavior every SnapshotStore must share.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordchain/internal/domain"
	"wordchain/internal/storage"
)

// Run exercises a store built fresh by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.SnapshotStore) {
	t.Helper()

	t.Run("save and load", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		want := sample(3, 1)

		require.NoError(t, store.SaveRoomSnapshot(ctx, want))
		got, err := store.LoadRoomSnapshot(ctx, 3)
		require.NoError(t, err)

		assert.Equal(t, want.RoomID, got.RoomID)
		assert.Equal(t, want.State, got.State)
		assert.Equal(t, want.Players, got.Players)
		assert.Equal(t, want.Config, got.Config)
		assert.Equal(t, want.Round, got.Round)
		assert.Equal(t, want.History, got.History)
		assert.Equal(t, want.Version, got.Version)
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updated at %v, want %v", got.UpdatedAt, want.UpdatedAt)
	})

	t.Run("load missing", func(t *testing.T) {
		store := open(t)
		_, err := store.LoadRoomSnapshot(context.Background(), 42)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("versioned upsert", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()

		require.NoError(t, store.SaveRoomSnapshot(ctx, sample(1, 5)))

		older := sample(1, 4)
		older.State = "9older1;~"
		assert.ErrorIs(t, store.SaveRoomSnapshot(ctx, older), storage.ErrStaleVersion)

		same := sample(1, 5)
		same.State = "2same1;~"
		require.NoError(t, store.SaveRoomSnapshot(ctx, same))

		newer := sample(1, 6)
		newer.State = "2newer1;~"
		newer.Players = nil
		require.NoError(t, store.SaveRoomSnapshot(ctx, newer))

		got, err := store.LoadRoomSnapshot(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "2newer1;~", got.State)
		assert.Equal(t, uint64(6), got.Version)
		assert.Empty(t, got.Players)
	})

	t.Run("list ordered", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		for _, id := range []domain.RoomID{7, 2, 5} {
			require.NoError(t, store.SaveRoomSnapshot(ctx, sample(id, 1)))
		}

		snaps, err := store.ListRoomSnapshots(ctx)
		require.NoError(t, err)
		ids := make([]domain.RoomID, 0, len(snaps))
		for _, s := range snaps {
			ids = append(ids, s.RoomID)
		}
		assert.Equal(t, []domain.RoomID{2, 5, 7}, ids)
	})

	t.Run("delete", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		require.NoError(t, store.SaveRoomSnapshot(ctx, sample(4, 1)))

		require.NoError(t, store.DeleteRoomSnapshot(ctx, 4))
		_, err := store.LoadRoomSnapshot(ctx, 4)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.NoError(t, store.DeleteRoomSnapshot(ctx, 4))
	})

	t.Run("snapshots are copies", func(t *testing.T) {
		store := open(t)
		ctx := context.Background()
		snap := sample(8, 1)
		require.NoError(t, store.SaveRoomSnapshot(ctx, snap))
		snap.Players[0] = 999
		snap.History[0].Points[10] = 999

		got, err := store.LoadRoomSnapshot(ctx, 8)
		require.NoError(t, err)
		assert.Equal(t, domain.PlayerID(10), got.Players[0])
		assert.Equal(t, 4, got.History[0].Points[10])
	})

	t.Run("cancelled context", func(t *testing.T) {
		store := open(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		assert.Error(t, store.SaveRoomSnapshot(ctx, sample(1, 1)))
	})
}

func sample(id domain.RoomID, version uint64) storage.Snapshot {
	cfg := domain.DefaultRoomConfig()
	cfg.Capacity = 6
	cfg.Scoring = domain.ScoringRule{ID: 101, Length: 5}
	cfg.Win = domain.WinRule{ID: 1, Points: 30}
	cfg.Language = 1
	cfg.Creator = 10
	return storage.Snapshot{
		RoomID:    id,
		State:     "10--10cat1700000000000;11tree1700000000500;~",
		Players:   []domain.PlayerID{10, 11},
		Config:    cfg,
		Round:     2,
		History: []*domain.RoundSummary{
			{Number: 1, Winner: 10, Words: 6, Points: map[domain.PlayerID]int{10: 4, 11: 2}, EndedAt: 1699999999000},
		},
		Version:   version,
		UpdatedAt: time.Date(2026, time.March, 3, 12, 0, 0, 0, time.UTC),
	}
}
