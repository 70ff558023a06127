package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"wordchain/internal/codec"
	"wordchain/internal/dictionary"
	"wordchain/internal/domain"
	"wordchain/internal/hub"
	"wordchain/internal/scoring"
	"wordchain/internal/storage"
)

// DefaultMaxCapacity bounds room capacity when Options leaves it unset
const DefaultMaxCapacity = 12

// Options tunes a Directory
type Options struct {
	DefaultCapacity int
	MaxCapacity     int
	SinkBuffer      int
	Clock           domain.Clock
}

// Stats is a point-in-time count of directory contents
type Stats struct {
	Rooms       int `json:"rooms"`
	Players     int `json:"players"`
	Subscribers int `json:"subscribers"`
}

// ReconcileReport summarizes one reconciliation pass
type ReconcileReport struct {
	Saved   int
	Failed  int
	Loaded  int
	Dropped int
}

// Directory manages all rooms of the process and the player to room index
type Directory struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomID]*RoomSession
	where  map[domain.PlayerID]domain.RoomID
	lastID domain.RoomID

	// reconcile runs one pass at a time
	reconcileMu sync.Mutex

	store  storage.SnapshotStore
	dicts  *dictionary.Registry
	opts   Options
	logger *slog.Logger
}

// NewDirectory creates an empty directory. dicts may be nil.
func NewDirectory(store storage.SnapshotStore, dicts *dictionary.Registry, logger *slog.Logger, opts Options) *Directory {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.DefaultCapacity <= 0 {
		opts.DefaultCapacity = domain.DefaultCapacity
	}
	if opts.MaxCapacity <= 0 {
		opts.MaxCapacity = DefaultMaxCapacity
	}
	if opts.Clock == nil {
		opts.Clock = domain.WallClock
	}
	return &Directory{
		rooms:  make(map[domain.RoomID]*RoomSession),
		where:  make(map[domain.PlayerID]domain.RoomID),
		store:  store,
		dicts:  dicts,
		opts:   opts,
		logger: logger,
	}
}

func (d *Directory) newSession(room *domain.Room) *RoomSession {
	var dict dictionary.Dictionary
	if found, ok := d.dicts.Lookup(room.Config.Language); ok {
		dict = found
	}
	return NewRoomSession(room, dict, d.logger, hub.WithBuffer(d.opts.SinkBuffer))
}

func (d *Directory) newRoom(id domain.RoomID, cfg domain.RoomConfig) *domain.Room {
	sp, ok := scoring.LookupScoring(cfg.Scoring.ID)
	if !ok {
		d.logger.Warn("unknown scoring policy, using default", "roomID", id, "scoringID", cfg.Scoring.ID)
	}
	wp, ok := scoring.LookupWin(cfg.Win.ID)
	if !ok {
		d.logger.Warn("unknown win condition, using default", "roomID", id, "winID", cfg.Win.ID)
	}
	return domain.NewRoom(id, cfg, sp, wp, d.opts.Clock)
}

// CreateRoom creates a room with cfg. A zero capacity takes the default.
func (d *Directory) CreateRoom(cfg domain.RoomConfig) (*RoomSession, error) {
	if cfg.Capacity == 0 {
		cfg.Capacity = d.opts.DefaultCapacity
	}
	if err := cfg.Validate(d.opts.MaxCapacity); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	d.lastID++
	id := d.lastID
	session := d.newSession(d.newRoom(id, cfg))
	d.rooms[id] = session

	d.logger.Info("room created",
		"roomID", id,
		"capacity", cfg.Capacity,
		"scoringID", cfg.Scoring.ID,
		"winID", cfg.Win.ID,
	)
	return session, nil
}

// GetRoom returns a room session by id
func (d *Directory) GetRoom(id domain.RoomID) (*RoomSession, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	session, ok := d.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return session, nil
}

// WhereIs returns the room the player is currently in
func (d *Directory) WhereIs(playerID domain.PlayerID) (domain.RoomID, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.where[playerID]
	return id, ok
}

// Join adds the player to a room. A player in another room leaves it once
// the join succeeded.
func (d *Directory) Join(id domain.RoomID, playerID domain.PlayerID) (*RoomSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.rooms[id]
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	if err := session.AddPlayer(playerID); err != nil {
		return nil, err
	}

	if prev, ok := d.where[playerID]; ok && prev != id {
		if old, ok := d.rooms[prev]; ok {
			old.RemovePlayer(playerID)
			old.Hub().UnregisterPlayer(playerID)
		}
	}
	d.where[playerID] = id
	return session, nil
}

// Leave removes the player from a room and ends their subscription there
func (d *Directory) Leave(id domain.RoomID, playerID domain.PlayerID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	session, ok := d.rooms[id]
	if !ok {
		return domain.ErrRoomNotFound
	}
	if !session.HasPlayer(playerID) {
		return domain.ErrPlayerNotFound
	}
	session.RemovePlayer(playerID)
	session.Hub().UnregisterPlayer(playerID)
	if d.where[playerID] == id {
		delete(d.where, playerID)
	}
	return nil
}

// List returns every room's summary, ordered by id
func (d *Directory) List() []RoomSummary {
	d.mu.RLock()
	sessions := make([]*RoomSession, 0, len(d.rooms))
	for _, s := range d.rooms {
		sessions = append(sessions, s)
	}
	d.mu.RUnlock()

	out := make([]RoomSummary, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Remove deletes a room from storage and memory
func (d *Directory) Remove(ctx context.Context, id domain.RoomID) error {
	d.reconcileMu.Lock()
	defer d.reconcileMu.Unlock()

	if _, err := d.GetRoom(id); err != nil {
		return err
	}
	if d.store != nil {
		if err := d.store.DeleteRoomSnapshot(ctx, id); err != nil {
			return fmt.Errorf("remove room %d: %w", id, err)
		}
	}

	d.mu.Lock()
	d.dropLocked(id)
	d.mu.Unlock()
	d.logger.Info("room removed", "roomID", id)
	return nil
}

// dropLocked forgets a room. Caller holds mu.
func (d *Directory) dropLocked(id domain.RoomID) {
	session, ok := d.rooms[id]
	if !ok {
		return
	}
	session.Close()
	delete(d.rooms, id)
	for pid, rid := range d.where {
		if rid == id {
			delete(d.where, pid)
		}
	}
}

// restore rebuilds a session from storage. A corrupt state is salvaged
// with the lenient decoder and reported.
func (d *Directory) restore(snap storage.Snapshot) *RoomSession {
	st, err := codec.Decode(snap.State)
	if err != nil {
		d.logger.Error("corrupt room snapshot, salvaging", "roomID", snap.RoomID, "error", err)
		st = codec.DecodeLenient(snap.State)
	}

	cfg := snap.Config
	if cfg.Capacity <= 0 {
		cfg.Capacity = d.opts.DefaultCapacity
	}
	room := d.newRoom(snap.RoomID, cfg)
	if snap.Round > 0 {
		room.Round = snap.Round
	}
	for _, r := range snap.History {
		if r != nil {
			room.History = append(room.History, r.Clone())
		}
	}
	room.Restore(st.Words, st.Penalties, snap.Players)

	session := d.newSession(room)
	session.version = snap.Version
	session.persisted = snap.Version
	session.stored = true
	return session
}

// addRestoredLocked installs a restored session and indexes its members.
// A player already indexed elsewhere is removed from the restored room.
// Caller holds mu.
func (d *Directory) addRestoredLocked(session *RoomSession) {
	id := session.ID()
	d.rooms[id] = session
	if id > d.lastID {
		d.lastID = id
	}
	for _, pid := range session.Players() {
		if other, ok := d.where[pid]; ok && other != id {
			d.logger.Warn("player stored in two rooms, keeping the first",
				"playerID", pid,
				"roomID", id,
				"keptRoomID", other,
			)
			session.RemovePlayer(pid)
			continue
		}
		d.where[pid] = id
	}
}

// Load restores every stored room that is not already in memory
func (d *Directory) Load(ctx context.Context) (int, error) {
	if d.store == nil {
		return 0, nil
	}
	d.reconcileMu.Lock()
	defer d.reconcileMu.Unlock()

	snaps, err := d.store.ListRoomSnapshots(ctx)
	if err != nil {
		return 0, fmt.Errorf("load rooms: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	loaded := 0
	for _, snap := range snaps {
		if _, ok := d.rooms[snap.RoomID]; ok || !snap.RoomID.Valid() {
			continue
		}
		d.addRestoredLocked(d.restore(snap))
		loaded++
	}
	if loaded > 0 {
		d.logger.Info("rooms loaded", "count", loaded)
	}
	return loaded, nil
}

// Reconcile persists every room that changed since its last save, then
// merges in rooms that appeared in storage and drops rooms that were
// removed from it. In-memory membership is never replaced by stored
// membership. Save failures leave the room dirty for the next pass.
func (d *Directory) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var report ReconcileReport
	if d.store == nil {
		return report, nil
	}
	d.reconcileMu.Lock()
	defer d.reconcileMu.Unlock()

	d.mu.RLock()
	sessions := make([]*RoomSession, 0, len(d.rooms))
	for _, s := range d.rooms {
		sessions = append(sessions, s)
	}
	d.mu.RUnlock()

	var errs []error
	for _, s := range sessions {
		snap, dirty := s.Snapshot()
		if !dirty {
			continue
		}
		err := d.store.SaveRoomSnapshot(ctx, snap)
		switch {
		case err == nil:
			s.MarkPersisted(snap.Version)
			report.Saved++
		case errors.Is(err, storage.ErrStaleVersion):
			d.logger.Warn("stored snapshot is newer than memory", "roomID", snap.RoomID, "version", snap.Version)
			s.MarkPersisted(snap.Version)
		default:
			d.logger.Error("failed to persist room", "roomID", snap.RoomID, "error", err)
			report.Failed++
			errs = append(errs, err)
		}
	}

	stored, err := d.store.ListRoomSnapshots(ctx)
	if err != nil {
		d.logger.Error("failed to list stored rooms", "error", err)
		errs = append(errs, err)
		return report, errors.Join(errs...)
	}
	present := make(map[domain.RoomID]struct{}, len(stored))
	for _, snap := range stored {
		present[snap.RoomID] = struct{}{}
	}

	d.mu.Lock()
	for _, snap := range stored {
		if _, ok := d.rooms[snap.RoomID]; ok || !snap.RoomID.Valid() {
			continue
		}
		d.addRestoredLocked(d.restore(snap))
		report.Loaded++
	}
	for id, s := range d.rooms {
		if _, ok := present[id]; ok || !s.Stored() {
			continue
		}
		d.logger.Info("room removed from storage, dropping", "roomID", id)
		d.dropLocked(id)
		report.Dropped++
	}
	d.mu.Unlock()

	d.logger.Debug("reconciled",
		"saved", report.Saved,
		"failed", report.Failed,
		"loaded", report.Loaded,
		"dropped", report.Dropped,
	)
	return report, errors.Join(errs...)
}

// Run reconciles every interval until ctx ends, then makes a final pass
// to flush pending changes.
func (d *Directory) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			if _, err := d.Reconcile(flushCtx); err != nil {
				d.logger.Error("final reconcile failed", "error", err)
			}
			cancel()
			return
		case <-ticker.C:
			_, _ = d.Reconcile(ctx)
		}
	}
}

// GetStats returns room, player and subscriber counts
func (d *Directory) GetStats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := Stats{Rooms: len(d.rooms), Players: len(d.where)}
	for _, s := range d.rooms {
		stats.Subscribers += len(s.Hub().Subscribers())
	}
	return stats
}

// Close ends every subscription of every room
func (d *Directory) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range d.rooms {
		s.Close()
	}
}
