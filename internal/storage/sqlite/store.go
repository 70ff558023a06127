// Package sqlite provides a SQLite-backed room snapshot store.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"wordchain/internal/domain"
	"wordchain/internal/storage"
	"wordchain/internal/storage/sqlite/migrations"
)

// Store persists room snapshots in SQLite.
type Store struct {
	sqlDB *sql.DB
}

var _ storage.SnapshotStore = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite snapshot store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// one writer; the reconciler is the only caller that saves
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRoomSnapshot upserts a snapshot unless a newer version is stored.
func (s *Store) SaveRoomSnapshot(ctx context.Context, snap storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !snap.RoomID.Valid() {
		return fmt.Errorf("save snapshot: %w", domain.ErrRoomNotFound)
	}
	players := snap.Players
	if players == nil {
		players = []domain.PlayerID{}
	}
	playersJSON, err := json.Marshal(players)
	if err != nil {
		return fmt.Errorf("encode players: %w", err)
	}
	configJSON, err := json.Marshal(snap.Config)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	history := snap.History
	if history == nil {
		history = []*domain.RoundSummary{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	updatedAt := snap.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	res, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO room_snapshots (room_id, state, players, config, round, history, version, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(room_id) DO UPDATE SET
		   state = excluded.state,
		   players = excluded.players,
		   config = excluded.config,
		   round = excluded.round,
		   history = excluded.history,
		   version = excluded.version,
		   updated_at = excluded.updated_at
		 WHERE excluded.version >= room_snapshots.version`,
		int64(snap.RoomID),
		snap.State,
		string(playersJSON),
		string(configJSON),
		snap.Round,
		string(historyJSON),
		int64(snap.Version),
		toMillis(updatedAt),
	)
	if err != nil {
		return fmt.Errorf("save room snapshot %d: %w", snap.RoomID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save room snapshot %d: %w", snap.RoomID, err)
	}
	if n == 0 {
		return storage.ErrStaleVersion
	}
	return nil
}

const selectSnapshot = `SELECT room_id, state, players, config, round, history, version, updated_at FROM room_snapshots`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (storage.Snapshot, error) {
	var (
		snap        storage.Snapshot
		roomID      int64
		playersJSON string
		configJSON  string
		historyJSON string
		version     int64
		updatedAt   int64
	)
	if err := row.Scan(&roomID, &snap.State, &playersJSON, &configJSON, &snap.Round, &historyJSON, &version, &updatedAt); err != nil {
		return storage.Snapshot{}, err
	}
	snap.RoomID = domain.RoomID(roomID)
	snap.Version = uint64(version)
	snap.UpdatedAt = fromMillis(updatedAt)
	if err := json.Unmarshal([]byte(playersJSON), &snap.Players); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode players of room %d: %w", roomID, err)
	}
	if err := json.Unmarshal([]byte(configJSON), &snap.Config); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode config of room %d: %w", roomID, err)
	}
	if err := json.Unmarshal([]byte(historyJSON), &snap.History); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode history of room %d: %w", roomID, err)
	}
	return snap, nil
}

// LoadRoomSnapshot returns one snapshot by room id.
func (s *Store) LoadRoomSnapshot(ctx context.Context, id domain.RoomID) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}
	snap, err := scanSnapshot(s.sqlDB.QueryRowContext(ctx, selectSnapshot+` WHERE room_id = ?`, int64(id)))
	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNotFound
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("load room snapshot %d: %w", id, err)
	}
	return snap, nil
}

// ListRoomSnapshots returns every snapshot ordered by room id.
func (s *Store) ListRoomSnapshots(ctx context.Context) ([]storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, selectSnapshot+` ORDER BY room_id`)
	if err != nil {
		return nil, fmt.Errorf("list room snapshots: %w", err)
	}
	defer rows.Close()

	var out []storage.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("list room snapshots: %w", err)
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list room snapshots: %w", err)
	}
	return out, nil
}

// DeleteRoomSnapshot removes a snapshot if present.
func (s *Store) DeleteRoomSnapshot(ctx context.Context, id domain.RoomID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM room_snapshots WHERE room_id = ?`, int64(id)); err != nil {
		return fmt.Errorf("delete room snapshot %d: %w", id, err)
	}
	return nil
}
