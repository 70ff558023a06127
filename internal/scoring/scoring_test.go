package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wordchain/internal/domain"
)

func TestScoringPolicies(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Scoring.Length = 4

	tests := []struct {
		id   int
		word string
		want int
	}{
		{FlatID, "elephant", 1},
		{FlatID, "a", 1},
		{LengthID, "żółw", 4},
		{ThresholdID, "elephant", 4},
		{ThresholdID, "cat", -1},
		{SafeThresholdID, "elephant", 4},
		{SafeThresholdID, "cat", 1},
		{SafeThresholdID, "tree", 1},
	}
	for _, tc := range tests {
		p, ok := LookupScoring(tc.id)
		assert.True(t, ok)
		got := p.Score(domain.Word{PlayerID: 1, Text: tc.word}, cfg)
		assert.Equal(t, tc.want, got, "policy %d word %q", tc.id, tc.word)
	}
}

func TestLookupFallsBack(t *testing.T) {
	sp, ok := LookupScoring(57)
	assert.False(t, ok)
	assert.Equal(t, FlatID, sp.ID())
	assert.Equal(t, 1, sp.Score(domain.Word{Text: "anything"}, domain.DefaultRoomConfig()))

	wp, ok := LookupWin(-3)
	assert.False(t, ok)
	assert.Equal(t, EndlessID, wp.ID())
}

func TestWinPolicies(t *testing.T) {
	cfg := domain.DefaultRoomConfig()
	cfg.Win.Points = 10

	endless, _ := LookupWin(EndlessID)
	_, ok := endless.Winner(cfg, map[domain.PlayerID]int{1: 1 << 20})
	assert.False(t, ok)

	first, _ := LookupWin(FirstToReachID)
	_, ok = first.Winner(cfg, map[domain.PlayerID]int{1: 9, 2: -4})
	assert.False(t, ok)

	winner, ok := first.Winner(cfg, map[domain.PlayerID]int{8: 12, 3: 10, 5: 2})
	assert.True(t, ok)
	assert.Equal(t, domain.PlayerID(3), winner)
}

func TestDescriptors(t *testing.T) {
	assert.Equal(t, []Descriptor{
		{ID: FlatID, Description: "default"},
		{ID: ThresholdID, Description: "+1overN"},
		{ID: LengthID, Description: "length"},
		{ID: SafeThresholdID, Description: "+1overN_safe"},
	}, ScoringDescriptors())

	assert.Equal(t, []Descriptor{
		{ID: EndlessID, Description: "default"},
		{ID: FirstToReachID, Description: "overN"},
	}, WinDescriptors())
}
