package app

import (
	"context"

	"github.com/stretchr/testify/mock"

	"wordchain/internal/domain"
	"wordchain/internal/storage"
)

// --- SnapshotStore ---

type MockSnapshotStore struct {
	mock.Mock
}

func (m *MockSnapshotStore) SaveRoomSnapshot(ctx context.Context, snap storage.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockSnapshotStore) LoadRoomSnapshot(ctx context.Context, id domain.RoomID) (storage.Snapshot, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(storage.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) ListRoomSnapshots(ctx context.Context) ([]storage.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).([]storage.Snapshot), args.Error(1)
}

func (m *MockSnapshotStore) DeleteRoomSnapshot(ctx context.Context, id domain.RoomID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// --- Dictionary ---

type MockDictionary struct {
	mock.Mock
}

func (m *MockDictionary) Contains(ctx context.Context, word string) (bool, error) {
	args := m.Called(ctx, word)
	return args.Bool(0), args.Error(1)
}
