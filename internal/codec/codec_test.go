package codec_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wordchain/internal/codec"
	"wordchain/internal/domain"
	"wordchain/internal/scoring"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name      string
		words     []domain.Word
		penalties []domain.Penalty
		want      string
	}{
		{name: "empty", want: ""},
		{
			name:      "penalties only",
			penalties: []domain.Penalty{{PlayerID: 12, Magnitude: 1}, {PlayerID: 3, Magnitude: 2}},
			want:      "3--12-",
		},
		{
			name: "words and penalties",
			words: []domain.Word{
				{PlayerID: 5, Text: "cat", Time: 123},
				{PlayerID: 7, Text: "tree", Time: 456},
			},
			penalties: []domain.Penalty{{PlayerID: 3, Magnitude: 2}, {PlayerID: 4, Magnitude: 0}},
			want:      "3--5cat123;7tree456;~",
		},
		{
			name:  "accented",
			words: []domain.Word{{PlayerID: 1, Text: "żółw", Time: 9}},
			want:  "1żółw9;~",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, codec.Encode(tc.words, tc.penalties))
		})
	}
}

func TestRoundTrip(t *testing.T) {
	sp, _ := scoring.LookupScoring(scoring.FlatID)
	wp, _ := scoring.LookupWin(scoring.EndlessID)
	r := domain.NewRoom(1, domain.DefaultRoomConfig(), sp, wp, nil)
	for _, id := range []domain.PlayerID{2, 31} {
		_, err := r.AddPlayer(id)
		require.NoError(t, err)
	}
	for i, w := range []string{"cat", "tygrys", "słoń", "ńa"} {
		_, err := r.SubmitWord(domain.PlayerID([]int{2, 31}[i%2]), w, int64(1700000000000+i))
		require.NoError(t, err)
	}
	_, err := r.Penalize(31, 4, domain.ReasonNotInDictionary, "")
	require.NoError(t, err)

	st, err := codec.Decode(codec.EncodeRoom(r))
	require.NoError(t, err)

	assert.True(t, st.HasWords)
	if diff := cmp.Diff(r.Words(), st.Words); diff != "" {
		t.Errorf("words mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(r.Penalties(), st.Penalties, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("penalties mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, map[domain.PlayerID]int{31: 4}, st.TotalPenalties())
}

func TestDecodeEmpty(t *testing.T) {
	st, err := codec.Decode("")
	require.NoError(t, err)
	assert.False(t, st.HasWords)
	assert.Empty(t, st.Words)
	assert.Empty(t, st.Penalties)
}

func TestDecodeCorrupt(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing flag", input: "5cat123;"},
		{name: "flag without words", input: "3--~"},
		{name: "data after flag", input: "5cat123;~7"},
		{name: "penalty after words", input: "5cat123;3-~"},
		{name: "zero player", input: "0cat123;~"},
		{name: "missing player", input: "cat123;~"},
		{name: "missing time", input: "5cat;~"},
		{name: "missing terminator", input: "5cat123~"},
		{name: "foreign letters", input: "5caß123;~"},
		{name: "bare id", input: "5"},
		{name: "player overflow", input: "99999999999999999999cat1;~"},
		{name: "padded player and time", input: "007cat05;~"},
		{name: "padded player", input: "07cat5;~"},
		{name: "padded time", input: "7cat05;~"},
		{name: "padded penalty player", input: "03-~"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := codec.Decode(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, codec.ErrCorruptState)

			var ce *codec.CorruptionError
			require.ErrorAs(t, err, &ce)
			assert.GreaterOrEqual(t, ce.Offset, 0)
			assert.LessOrEqual(t, ce.Offset, len(tc.input))
		})
	}
}

func TestRestoreIgnoresFutureWordTimes(t *testing.T) {
	sp, _ := scoring.LookupScoring(scoring.FlatID)
	wp, _ := scoring.LookupWin(scoring.EndlessID)
	clock := func() int64 { return 5000 }

	r := domain.NewRoom(1, domain.DefaultRoomConfig(), sp, wp, clock)
	_, err := r.AddPlayer(1)
	require.NoError(t, err)
	sub, err := r.SubmitWord(1, "cat", 9_000_000_000_000_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sub.Word.Time)

	// a state written before far-future times were refused
	st, err := codec.Decode("1cat9000000000000000000;~")
	require.NoError(t, err)
	restored := domain.NewRoom(1, domain.DefaultRoomConfig(), sp, wp, clock)
	restored.Restore(st.Words, st.Penalties, []domain.PlayerID{1})

	sub, err = restored.SubmitWord(1, "tree", 0)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sub.Word.Time)
	for _, ev := range sub.Events {
		assert.Equal(t, int64(5000), ev.Time, ev.Type)
	}

	st, err = codec.Decode(codec.EncodeRoom(restored))
	require.NoError(t, err)
	require.Len(t, st.Words, 2)
	assert.Equal(t, int64(5000), st.Words[1].Time)
}

func TestDecodeLenient(t *testing.T) {
	st := codec.DecodeLenient("3--garbage5cat123;!!7tree456;~")

	assert.True(t, st.HasWords)
	assert.Equal(t, []domain.Penalty{{PlayerID: 3, Magnitude: 2}}, st.Penalties)
	want := []domain.Word{
		{PlayerID: 5, Text: "cat", Time: 123},
		{PlayerID: 7, Text: "tree", Time: 456},
	}
	if diff := cmp.Diff(want, st.Words); diff != "" {
		t.Errorf("words mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeLenientMatchesStrictOnValidInput(t *testing.T) {
	in := "3--19-5cat123;7tree456;~"

	strict, err := codec.Decode(in)
	require.NoError(t, err)
	lenient := codec.DecodeLenient(in)

	if diff := cmp.Diff(strict, lenient); diff != "" {
		t.Errorf("lenient decode differs (-strict +lenient):\n%s", diff)
	}
}
