package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordchain/internal/domain"
	"wordchain/internal/scoring"
)

func fixedClock(start int64) domain.Clock {
	now := start
	return func() int64 {
		now++
		return now
	}
}

func newRoom(t *testing.T, cfg domain.RoomConfig) *domain.Room {
	t.Helper()
	sp, _ := scoring.LookupScoring(cfg.Scoring.ID)
	wp, _ := scoring.LookupWin(cfg.Win.ID)
	return domain.NewRoom(1, cfg, sp, wp, fixedClock(1000))
}

func submitAll(t *testing.T, r *domain.Room, p domain.PlayerID, words ...string) {
	t.Helper()
	for _, w := range words {
		_, err := r.SubmitWord(p, w, 0)
		require.NoError(t, err, w)
	}
}

func countEvents(events []domain.RoomEvent, typ domain.EventType) int {
	n := 0
	for _, ev := range events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

func TestAddPlayer(t *testing.T) {
	t.Run("idempotent join", func(t *testing.T) {
		r := newRoom(t, domain.DefaultRoomConfig())

		events, err := r.AddPlayer(7)
		require.NoError(t, err)
		assert.Len(t, events, 1)
		first, _ := r.PointsOf(7)

		events, err = r.AddPlayer(7)
		require.NoError(t, err)
		assert.Empty(t, events)
		second, ok := r.PointsOf(7)
		assert.True(t, ok)
		assert.Equal(t, first, second)
		assert.Equal(t, 1, r.PlayerCount())
	})

	t.Run("capacity", func(t *testing.T) {
		cfg := domain.DefaultRoomConfig()
		cfg.Capacity = 2
		r := newRoom(t, cfg)

		for _, id := range []domain.PlayerID{9, 3} {
			_, err := r.AddPlayer(id)
			require.NoError(t, err)
		}
		_, err := r.AddPlayer(5)
		assert.ErrorIs(t, err, domain.ErrRoomFull)

		_, err = r.AddPlayer(3)
		assert.NoError(t, err, "present player rejoins a full room")
		assert.Equal(t, []domain.PlayerID{3, 9}, r.Players())
	})

	t.Run("invalid id", func(t *testing.T) {
		r := newRoom(t, domain.DefaultRoomConfig())
		_, err := r.AddPlayer(domain.NoPlayer)
		assert.ErrorIs(t, err, domain.ErrInvalidPlayerID)
	})
}

func TestRemovePlayerKeepsHistory(t *testing.T) {
	r := newRoom(t, domain.DefaultRoomConfig())
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	submitAll(t, r, 1, "cat", "tree")

	events, absent := r.RemovePlayer(1)
	assert.True(t, absent)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventLeave, events[0].Type)

	assert.False(t, r.HasPlayer(1))
	assert.Equal(t, 2, r.WordCount())
	pts, ok := r.PointsOf(1)
	assert.True(t, ok)
	assert.Equal(t, 2, pts)

	events, absent = r.RemovePlayer(1)
	assert.True(t, absent)
	assert.Empty(t, events)
}

func TestSubmitWordValidation(t *testing.T) {
	r := newRoom(t, domain.DefaultRoomConfig())
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	submitAll(t, r, 1, "cat", "tree")

	tests := []struct {
		name string
		word string
		want error
	}{
		{name: "wrong chain start", word: "dog", want: domain.ErrWrongChainStart},
		{name: "duplicate any case", word: "CAT", want: domain.ErrDuplicateWord},
		{name: "duplicate of last word", word: "Tree", want: domain.ErrDuplicateWord},
		{name: "digits", word: "e1", want: domain.ErrInvalidWordFormat},
		{name: "empty", word: "   ", want: domain.ErrInvalidWordFormat},
		{name: "foreign letters", word: "eß", want: domain.ErrInvalidWordFormat},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sub, err := r.SubmitWord(1, tc.word, 0)
			assert.Nil(t, sub)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, 2, r.WordCount())
		})
	}

	_, err = r.SubmitWord(2, "egg", 0)
	assert.ErrorIs(t, err, domain.ErrNotMember)
}

func TestSubmitWordNormalizes(t *testing.T) {
	r := newRoom(t, domain.DefaultRoomConfig())
	_, err := r.AddPlayer(1)
	require.NoError(t, err)

	// combining accents compose to the precomposed letters
	sub, err := r.SubmitWord(1, "  Róża ", 0)
	require.NoError(t, err)
	assert.Equal(t, "róża", sub.Word.Text)

	_, err = r.SubmitWord(1, "ARKA", 0)
	assert.NoError(t, err)
}

func TestSubmitWordTime(t *testing.T) {
	r := newRoom(t, domain.DefaultRoomConfig())
	_, err := r.AddPlayer(1)
	require.NoError(t, err)

	sub, err := r.SubmitWord(1, "cat", 42)
	require.NoError(t, err)
	assert.Equal(t, int64(42), sub.Word.Time)

	sub, err = r.SubmitWord(1, "tree", -5)
	require.NoError(t, err)
	assert.Greater(t, sub.Word.Time, int64(1000))

	sub, err = r.SubmitWord(1, "eel", 9_000_000_000_000_000_000)
	require.NoError(t, err)
	assert.Less(t, sub.Word.Time, int64(1000)+domain.MaxClockSkew, "far-future times fall back to the room clock")
	for _, ev := range sub.Events {
		assert.Less(t, ev.Time, int64(1000)+domain.MaxClockSkew)
	}
}

func TestSubmitCheckedUnknownWord(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 2}
	cfg.DictionaryPenalty = 2
	r := newRoom(t, cfg)
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	submitAll(t, r, 1, "cat")

	sub, err := r.SubmitChecked(1, "tree", 0, false)
	require.NoError(t, err)
	assert.Equal(t, 1, sub.Points)
	assert.Equal(t, 2, sub.Penalty)
	assert.Equal(t, 0, sub.Total)
	assert.Equal(t, domain.PhaseOpen, r.Phase)
	assert.Equal(t, 2, countEvents(sub.Events, domain.EventPoints))
	assert.Equal(t, []domain.Penalty{{PlayerID: 1, Magnitude: 2}}, r.Penalties())

	sub, err = r.SubmitChecked(1, "eel", 0, true)
	require.NoError(t, err)
	assert.Zero(t, sub.Penalty)
	assert.Equal(t, 1, sub.Total)
}

func TestForbidConsecutive(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.ForbidConsecutive = true
	r := newRoom(t, cfg)
	for _, id := range []domain.PlayerID{1, 2} {
		_, err := r.AddPlayer(id)
		require.NoError(t, err)
	}

	submitAll(t, r, 1, "cat")
	_, err := r.SubmitWord(1, "tree", 0)
	assert.ErrorIs(t, err, domain.ErrNotYourTurn)

	submitAll(t, r, 2, "tree")
	submitAll(t, r, 1, "egg")
}

func TestWinDetection(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 3}
	r := newRoom(t, cfg)
	_, err := r.AddPlayer(4)
	require.NoError(t, err)

	var events []domain.RoomEvent
	for i, w := range []string{"cat", "tree", "egg"} {
		sub, err := r.SubmitWord(4, w, 0)
		require.NoError(t, err)
		events = append(events, sub.Events...)
		if i < 2 {
			assert.Zero(t, countEvents(events, domain.EventWin), "no win before the third word")
		}
	}

	require.Equal(t, 1, countEvents(events, domain.EventWin))
	last := events[len(events)-1]
	assert.Equal(t, domain.EventWin, last.Type)
	assert.Equal(t, domain.PlayerID(4), last.PlayerID)
	assert.Equal(t, domain.PhaseFinished, r.Phase)
	assert.Equal(t, domain.PlayerID(4), r.Winner)

	_, err = r.SubmitWord(4, "goat", 0)
	assert.ErrorIs(t, err, domain.ErrGameOver)
}

func TestEventTimesNonDecreasing(t *testing.T) {
	now := int64(5000)
	clock := func() int64 {
		now -= 10 // a clock running backwards
		return now
	}
	sp, _ := scoring.LookupScoring(scoring.FlatID)
	wp, _ := scoring.LookupWin(scoring.EndlessID)
	r := domain.NewRoom(1, domain.DefaultRoomConfig(), sp, wp, clock)

	var events []domain.RoomEvent
	evs, err := r.AddPlayer(1)
	require.NoError(t, err)
	events = append(events, evs...)
	for _, w := range []string{"cat", "tree"} {
		sub, err := r.SubmitWord(1, w, 0)
		require.NoError(t, err)
		events = append(events, sub.Events...)
	}

	for i := 1; i < len(events); i++ {
		assert.GreaterOrEqual(t, events[i].Time, events[i-1].Time)
	}
}

func TestPenalize(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 2}
	r := newRoom(t, cfg)
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	submitAll(t, r, 1, "cat")

	events, err := r.Penalize(1, 3, domain.ReasonNotInDictionary, "cat")
	require.NoError(t, err)
	require.Len(t, events, 1)
	payload, ok := events[0].Payload.(*domain.PointsPayload)
	require.True(t, ok)
	assert.Equal(t, -3, payload.Points)
	assert.Equal(t, -2, payload.Total)
	assert.Equal(t, domain.ReasonNotInDictionary, payload.Reason)
	assert.Equal(t, []domain.Penalty{{PlayerID: 1, Magnitude: 3}}, r.Penalties())

	_, err = r.Penalize(1, 0, domain.ReasonNotInDictionary, "")
	assert.ErrorIs(t, err, domain.ErrInvalidPenalty)
	_, err = r.Penalize(99, 1, domain.ReasonNotInDictionary, "")
	assert.ErrorIs(t, err, domain.ErrPlayerNotFound)
}

func TestReset(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win = domain.WinRule{ID: scoring.FirstToReachID, Points: 2}
	r := newRoom(t, cfg)
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	submitAll(t, r, 1, "cat", "tree")
	require.Equal(t, domain.PhaseFinished, r.Phase)

	events, err := r.Reset()
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, domain.EventReset, events[0].Type)

	assert.Equal(t, domain.PhaseOpen, r.Phase)
	assert.Equal(t, 2, r.Round)
	assert.Equal(t, domain.NoPlayer, r.Winner)
	assert.Zero(t, r.WordCount())
	assert.Equal(t, map[domain.PlayerID]int{1: 0}, r.Points())
	assert.True(t, r.HasPlayer(1))

	require.Len(t, r.History, 1)
	assert.Equal(t, 1, r.History[0].Number)
	assert.Equal(t, domain.PlayerID(1), r.History[0].Winner)
	assert.Equal(t, 2, r.History[0].Words)

	// the archived words are usable again
	submitAll(t, r, 1, "cat")
}

func TestRestoreReplaysScores(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Scoring = domain.ScoringRule{ID: scoring.LengthID}
	r := newRoom(t, cfg)

	words := []domain.Word{
		{PlayerID: 1, Text: "cat", Time: 10},
		{PlayerID: 2, Text: "tree", Time: 20},
	}
	r.Restore(words, []domain.Penalty{{PlayerID: 2, Magnitude: 1}}, []domain.PlayerID{1})

	assert.Equal(t, map[domain.PlayerID]int{1: 3, 2: 3}, r.Points())
	assert.Equal(t, []domain.PlayerID{1}, r.Players())
	assert.Equal(t, words, r.Words())

	_, err := r.SubmitWord(1, "CAT", 0)
	assert.ErrorIs(t, err, domain.ErrDuplicateWord)
}

func TestReplayScoresDeterministic(t *testing.T) {
	sp, ok := scoring.LookupScoring(scoring.ThresholdID)
	require.True(t, ok)
	cfg := domain.DefaultRoomConfig()
	words := []domain.Word{
		{PlayerID: 1, Text: "elephant"},
		{PlayerID: 2, Text: "tea"},
		{PlayerID: 1, Text: "apple"},
	}

	first := domain.ReplayScores(words, sp, cfg)
	second := domain.ReplayScores(words, sp, cfg)
	assert.Equal(t, first, second)
	assert.Equal(t, map[domain.PlayerID]int{1: 5, 2: -1}, first)

	totals := domain.ApplyPenalties(first, []domain.Penalty{{PlayerID: 2, Magnitude: 2}})
	assert.Equal(t, -3, totals[2])
}

func TestRejectionMatching(t *testing.T) {
	r := newRoom(t, domain.DefaultRoomConfig())
	_, err := r.AddPlayer(1)
	require.NoError(t, err)

	_, err = r.SubmitWord(1, "42", 0)
	rej, ok := domain.AsRejection(err)
	require.True(t, ok)
	assert.Equal(t, domain.ReasonInvalidFormat, rej.Reason)
	assert.True(t, rej.Reason.Validation())
	assert.False(t, errors.Is(err, domain.ErrDuplicateWord))
	assert.False(t, domain.ReasonGameOver.Validation())
}
