package app

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wordchain/internal/dictionary"
	"wordchain/internal/domain"
	"wordchain/internal/hub"
	"wordchain/internal/scoring"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, cfg domain.RoomConfig, dict dictionary.Dictionary, players ...domain.PlayerID) *RoomSession {
	t.Helper()
	sp, _ := scoring.LookupScoring(cfg.Scoring.ID)
	wp, _ := scoring.LookupWin(cfg.Win.ID)
	s := NewRoomSession(domain.NewRoom(1, cfg, sp, wp, nil), dict, quietLogger())
	t.Cleanup(s.Close)
	for _, p := range players {
		require.NoError(t, s.AddPlayer(p))
	}
	return s
}

type eventRecorder struct {
	ch chan hub.Delivery
}

func newEventRecorder() *eventRecorder {
	return &eventRecorder{ch: make(chan hub.Delivery, 32)}
}

func (r *eventRecorder) Deliver(d hub.Delivery) error {
	r.ch <- d
	return nil
}

func (r *eventRecorder) types(t *testing.T, n int) []domain.EventType {
	t.Helper()
	out := make([]domain.EventType, 0, n)
	for len(out) < n {
		select {
		case d := <-r.ch:
			out = append(out, d.Event.Type)
		case <-time.After(2 * time.Second):
			t.Fatalf("got %d of %d events: %v", len(out), n, out)
		}
	}
	return out
}

func TestSessionSubmitBroadcasts(t *testing.T) {
	s := newTestSession(t, domain.DefaultRoomConfig(), nil, 1, 2)
	rec := newEventRecorder()
	_, info, err := s.Subscribe(2, rec)
	require.NoError(t, err)
	assert.Equal(t, []domain.PlayerID{1, 2}, info.Players)
	assert.Empty(t, info.State)

	sub, err := s.SubmitWord(context.Background(), 1, "cat", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Total)

	want := []domain.EventType{domain.EventState, domain.EventInput, domain.EventPoints}
	assert.Equal(t, want, rec.types(t, 3), "the initial view is delivered first")
	assert.Contains(t, s.CurrentState(), "1cat")
}

func TestSessionSubscribeRequiresMembership(t *testing.T) {
	s := newTestSession(t, domain.DefaultRoomConfig(), nil, 1)
	_, _, err := s.Subscribe(9, newEventRecorder())
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestSessionDictionaryMissPenalizes(t *testing.T) {
	dict := &MockDictionary{}
	dict.On("Contains", mock.Anything, "cat").Return(true, nil)
	dict.On("Contains", mock.Anything, "tqx").Return(false, nil)

	s := newTestSession(t, domain.DefaultRoomConfig(), dict, 1)
	ctx := context.Background()

	_, err := s.SubmitWord(ctx, 1, "cat", 0)
	require.NoError(t, err)

	sub, err := s.SubmitWord(ctx, 1, "tqx", 0)
	require.NoError(t, err, "a dictionary miss still accepts the word")
	assert.Equal(t, 1, sub.Total)
	last := sub.Events[len(sub.Events)-1]
	payload, ok := last.Payload.(*domain.PointsPayload)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonNotInDictionary, payload.Reason)
	assert.Equal(t, -1, payload.Points)

	assert.Equal(t, "1-1cat", s.CurrentState()[:6])
	dict.AssertExpectations(t)
}

func TestSessionDictionaryMissCannotWin(t *testing.T) {
	dict := &MockDictionary{}
	dict.On("Contains", mock.Anything, "cat").Return(true, nil)
	dict.On("Contains", mock.Anything, "tree").Return(true, nil)
	dict.On("Contains", mock.Anything, "eqq").Return(false, nil)

	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 3}
	s := newTestSession(t, cfg, dict, 1)
	ctx := context.Background()

	for _, w := range []string{"cat", "tree"} {
		_, err := s.SubmitWord(ctx, 1, w, 0)
		require.NoError(t, err)
	}
	sub, err := s.SubmitWord(ctx, 1, "eqq", 0)
	require.NoError(t, err)

	assert.Equal(t, 2, sub.Total, "the penalty counts before the win check")
	assert.Equal(t, 1, sub.Penalty)
	assert.False(t, sub.Winner.Valid())
	assert.Equal(t, 0, countType(sub.Events, domain.EventWin))
	assert.Equal(t, domain.PhaseOpen, s.GetPhase())
	assert.True(t, strings.HasPrefix(s.CurrentState(), "1-1cat"), s.CurrentState())
	dict.AssertExpectations(t)
}

func countType(events []domain.RoomEvent, typ domain.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestSessionDictionaryFailureAccepts(t *testing.T) {
	dict := &MockDictionary{}
	dict.On("Contains", mock.Anything, "cat").Return(false, assert.AnError)

	s := newTestSession(t, domain.DefaultRoomConfig(), dict, 1)
	sub, err := s.SubmitWord(context.Background(), 1, "cat", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Total)
	assert.Len(t, sub.Events, 2)
}

func TestSessionRejectPenalty(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.RejectPenalty = 2
	s := newTestSession(t, cfg, nil, 1)
	ctx := context.Background()

	_, err := s.SubmitWord(ctx, 1, "cat", 0)
	require.NoError(t, err)
	_, err = s.SubmitWord(ctx, 1, "dog", 0)
	assert.ErrorIs(t, err, domain.ErrWrongChainStart)

	info := s.Info()
	require.Len(t, info.Standings, 1)
	assert.Equal(t, -1, info.Standings[0].Points)
	assert.Equal(t, 2, info.Standings[0].Penalty)

	// non-members are refused without a penalty
	_, err = s.SubmitWord(ctx, 5, "tree", 0)
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestSessionSnapshotVersions(t *testing.T) {
	s := newTestSession(t, domain.DefaultRoomConfig(), nil)

	snap, dirty := s.Snapshot()
	assert.True(t, dirty, "new rooms are unsaved")
	s.MarkPersisted(snap.Version)
	_, dirty = s.Snapshot()
	assert.False(t, dirty)
	assert.True(t, s.Stored())

	require.NoError(t, s.AddPlayer(3))
	require.NoError(t, s.AddPlayer(3))
	next, dirty := s.Snapshot()
	assert.True(t, dirty)
	assert.Equal(t, snap.Version+1, next.Version, "an idempotent join is not a change")
	assert.Equal(t, []domain.PlayerID{3}, next.Players)
}

func TestSessionReset(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 1}
	s := newTestSession(t, cfg, nil, 1)
	ctx := context.Background()

	sub, err := s.SubmitWord(ctx, 1, "cat", 0)
	require.NoError(t, err)
	assert.Equal(t, domain.PlayerID(1), sub.Winner)
	assert.Equal(t, domain.PhaseFinished, s.GetPhase())

	require.NoError(t, s.Reset())
	assert.Equal(t, domain.PhaseOpen, s.GetPhase())
	assert.Len(t, s.History(), 1)
	assert.Empty(t, s.CurrentState())
}

func TestRoomSummaryString(t *testing.T) {
	assert.Equal(t, "7[2/4]", RoomSummary{ID: 7, Players: 2, Capacity: 4}.String())
}
