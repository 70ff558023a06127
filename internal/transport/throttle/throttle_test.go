package throttle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"wordchain/internal/domain"
)

func TestLimitersArePerPlayer(t *testing.T) {
	l := New(0.001, 2)

	assert.True(t, l.Allow(1))
	assert.True(t, l.Allow(1))
	assert.False(t, l.Allow(1), "burst spent")
	assert.True(t, l.Allow(2), "other players have their own bucket")
	assert.Same(t, l.For(1), l.For(1))
}

func TestLimitersPruneIdle(t *testing.T) {
	l := New(1000, 1)
	for id := domain.PlayerID(1); id <= pruneAt; id++ {
		l.For(id)
	}
	assert.True(t, l.Allow(1))
	assert.Equal(t, pruneAt, l.Len())

	l.For(pruneAt + 1)
	assert.Less(t, l.Len(), pruneAt, "untouched buckets are dropped")
}

func TestNewClampsBurst(t *testing.T) {
	l := New(1, 0)
	assert.True(t, l.Allow(1))
}
