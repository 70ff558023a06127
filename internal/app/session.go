package app

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"wordchain/internal/codec"
	"wordchain/internal/dictionary"
	"wordchain/internal/domain"
	"wordchain/internal/hub"
	"wordchain/internal/storage"
)

// RoomInfo is the boundary view of a room
type RoomInfo struct {
	ID        domain.RoomID       `json:"roomId"`
	State     string              `json:"state"`
	Players   []domain.PlayerID   `json:"players"`
	Capacity  int                 `json:"capacity"`
	ScoringID int                 `json:"scoringId"`
	WinID     int                 `json:"winId"`
	Language  int                 `json:"language"`
	Round     int                 `json:"round"`
	Phase     domain.Phase        `json:"phase"`
	Winner    domain.PlayerID     `json:"winner,omitempty"`
	Standings []domain.PlayerInfo `json:"standings"`
}

// RoomSummary is one entry of the room list
type RoomSummary struct {
	ID       domain.RoomID `json:"id"`
	Players  int           `json:"players"`
	Capacity int           `json:"capacity"`
}

// String returns the compact list form id[in/max]
func (s RoomSummary) String() string {
	return fmt.Sprintf("%d[%d/%d]", s.ID, s.Players, s.Capacity)
}

// RoomSession wraps a room with serialized access and event fan-out.
// Every mutation runs under mu and broadcasts its events before releasing
// it, so subscribers see events in mutation order.
type RoomSession struct {
	room   *domain.Room
	mu     sync.Mutex
	hub    *hub.Hub
	dict   dictionary.Dictionary
	logger *slog.Logger

	createdAt time.Time

	// version counts mutations; persisted is the last version saved
	version   uint64
	persisted uint64
	stored    bool
}

// NewRoomSession creates a session around room. dict may be nil.
func NewRoomSession(room *domain.Room, dict dictionary.Dictionary, logger *slog.Logger, hubOpts ...hub.Option) *RoomSession {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("roomID", room.ID)
	return &RoomSession{
		room:      room,
		hub:       hub.New(room.ID, logger, hubOpts...),
		dict:      dict,
		logger:    logger,
		createdAt: time.Now(),
		version:   1,
	}
}

// ID returns the room id
func (s *RoomSession) ID() domain.RoomID {
	return s.room.ID
}

// GetCreatedAt returns when the session was created or loaded
func (s *RoomSession) GetCreatedAt() time.Time {
	return s.createdAt
}

// Config returns the room's creation settings
func (s *RoomSession) Config() domain.RoomConfig {
	return s.room.Config
}

// Hub returns the room's event hub
func (s *RoomSession) Hub() *hub.Hub {
	return s.hub
}

// apply records a mutation and fans its events out. Caller holds mu.
func (s *RoomSession) apply(events []domain.RoomEvent) {
	if len(events) == 0 {
		return
	}
	s.version++
	for _, ev := range events {
		s.hub.Broadcast(ev)
	}
}

// AddPlayer adds a player to the room
func (s *RoomSession) AddPlayer(playerID domain.PlayerID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.room.AddPlayer(playerID)
	if err != nil {
		return err
	}
	s.apply(events)
	if len(events) > 0 {
		s.logger.Info("player joined", "playerID", playerID, "players", s.room.PlayerCount())
	}
	return nil
}

// RemovePlayer removes a player from the room. It reports whether the
// player is absent afterwards.
func (s *RoomSession) RemovePlayer(playerID domain.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, absent := s.room.RemovePlayer(playerID)
	s.apply(events)
	if len(events) > 0 {
		s.logger.Info("player left", "playerID", playerID, "players", s.room.PlayerCount())
	}
	return absent
}

// SubmitWord validates and applies a word.
//
// The dictionary is consulted before the room is locked. A word missing from
// the dictionary is still accepted; the player is penalized by the room's
// DictionaryPenalty instead. Validation rejections cost RejectPenalty when
// the room sets one. The returned error is a *domain.Rejection for refused
// words.
func (s *RoomSession) SubmitWord(ctx context.Context, playerID domain.PlayerID, text string, at int64) (*domain.Submission, error) {
	known := s.lookup(ctx, domain.NormalizeText(text))

	s.mu.Lock()
	defer s.mu.Unlock()

	sub, err := s.room.SubmitChecked(playerID, text, at, known)
	if err != nil {
		if rej, ok := domain.AsRejection(err); ok {
			s.penalizeRejection(playerID, rej)
		}
		return nil, err
	}
	s.apply(sub.Events)

	s.logger.Debug("word accepted",
		"playerID", playerID,
		"word", sub.Word.Text,
		"points", sub.Points,
		"total", sub.Total,
		"penalty", sub.Penalty,
	)
	if sub.Winner.Valid() {
		s.logger.Info("round won", "playerID", sub.Winner, "round", s.room.Round)
	}
	return sub, nil
}

// lookup reports whether word may be scored without a dictionary penalty.
// Missing dictionaries, malformed words and lookup failures all count as
// known.
func (s *RoomSession) lookup(ctx context.Context, word string) bool {
	if s.dict == nil || !domain.IsWordText(word) {
		return true
	}
	found, err := s.dict.Contains(ctx, word)
	if err != nil {
		s.logger.Warn("dictionary lookup failed", "word", word, "error", err)
		return true
	}
	return found
}

// penalizeRejection applies the room's RejectPenalty for validation
// rejections. Caller holds mu.
func (s *RoomSession) penalizeRejection(playerID domain.PlayerID, rej *domain.Rejection) {
	magnitude := s.room.Config.RejectPenalty
	if magnitude <= 0 || !rej.Reason.Validation() {
		return
	}
	events, err := s.room.Penalize(playerID, magnitude, rej.Reason, rej.Text)
	if err != nil {
		s.logger.Debug("reject penalty not applied", "playerID", playerID, "error", err)
		return
	}
	s.apply(events)
}

// Penalize records a negative adjustment for a player
func (s *RoomSession) Penalize(playerID domain.PlayerID, magnitude int, reason domain.RejectReason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.room.Penalize(playerID, magnitude, reason, "")
	if err != nil {
		return err
	}
	s.apply(events)
	return nil
}

// Reset starts a new round
func (s *RoomSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.room.Reset()
	if err != nil {
		return err
	}
	s.apply(events)
	s.logger.Info("round reset", "round", s.room.Round)
	return nil
}

// CurrentState returns the encoded ledgers
func (s *RoomSession) CurrentState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return codec.EncodeRoom(s.room)
}

// HasPlayer checks if the player is currently in the room
func (s *RoomSession) HasPlayer(playerID domain.PlayerID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.HasPlayer(playerID)
}

// GetPlayerCount returns the number of players
func (s *RoomSession) GetPlayerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.PlayerCount()
}

// Players returns the current members, ascending
func (s *RoomSession) Players() []domain.PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Players()
}

// GetPhase returns the current phase
func (s *RoomSession) GetPhase() domain.Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room.Phase
}

// History returns the summaries of previous rounds
func (s *RoomSession) History() []*domain.RoundSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.historyLocked()
}

func (s *RoomSession) historyLocked() []*domain.RoundSummary {
	out := make([]*domain.RoundSummary, len(s.room.History))
	for i, r := range s.room.History {
		out[i] = r.Clone()
	}
	return out
}

// Info returns the boundary view of the room
func (s *RoomSession) Info() RoomInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.infoLocked()
}

func (s *RoomSession) infoLocked() RoomInfo {
	return RoomInfo{
		ID:        s.room.ID,
		State:     codec.EncodeRoom(s.room),
		Players:   s.room.Players(),
		Capacity:  s.room.Config.Capacity,
		ScoringID: s.room.ScoringPolicy().ID(),
		WinID:     s.room.WinPolicy().ID(),
		Language:  s.room.Config.Language,
		Round:     s.room.Round,
		Phase:     s.room.Phase,
		Winner:    s.room.Winner,
		Standings: s.room.GetPlayerInfoList(),
	}
}

// Summary returns the room's list entry
func (s *RoomSession) Summary() RoomSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return RoomSummary{
		ID:       s.room.ID,
		Players:  s.room.PlayerCount(),
		Capacity: s.room.Config.Capacity,
	}
}

// Subscribe registers sink for a member of the room. The first delivery is
// an EventState carrying the returned view; events broadcast after the view
// was taken follow it on the subscription.
func (s *RoomSession) Subscribe(playerID domain.PlayerID, sink hub.Sink) (*hub.Subscription, RoomInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.room.HasPlayer(playerID) {
		return nil, RoomInfo{}, domain.ErrPlayerNotFound
	}
	sub, err := s.hub.Register(playerID, sink)
	if err != nil {
		return nil, RoomInfo{}, err
	}
	info := s.infoLocked()
	s.hub.Send(playerID, domain.RoomEvent{
		Type:     domain.EventState,
		RoomID:   s.room.ID,
		PlayerID: playerID,
		Payload:  info,
		Time:     time.Now().UnixMilli(),
	})
	return sub, info, nil
}

// Unsubscribe removes sub if it is still current
func (s *RoomSession) Unsubscribe(sub *hub.Subscription) {
	s.hub.Unregister(sub)
}

// Snapshot captures the room for persistence. dirty reports whether it
// changed since the last MarkPersisted.
func (s *RoomSession) Snapshot() (snap storage.Snapshot, dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return storage.Snapshot{
		RoomID:    s.room.ID,
		State:     codec.EncodeRoom(s.room),
		Players:   s.room.Players(),
		Config:    s.room.Config,
		Round:     s.room.Round,
		History:   s.historyLocked(),
		Version:   s.version,
		UpdatedAt: time.Now().UTC(),
	}, s.version > s.persisted
}

// MarkPersisted records that version reached storage
func (s *RoomSession) MarkPersisted(version uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if version > s.persisted {
		s.persisted = version
	}
	s.stored = true
}

// Stored reports whether the room has been persisted at least once
func (s *RoomSession) Stored() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stored
}

// Close ends every subscription
func (s *RoomSession) Close() {
	s.hub.Close()
}
