// Package throttle keeps one submission rate limiter per player, shared by
// every transport the player submits through.
package throttle

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"wordchain/internal/domain"
)

// pruneAt is the number of tracked players above which idle limiters are
// dropped.
const pruneAt = 1024

// Limiters hands out per-player token buckets.
type Limiters struct {
	mu    sync.Mutex
	limit rate.Limit
	burst int
	m     map[domain.PlayerID]*rate.Limiter
}

// New creates a set of limiters allowing perSecond sustained submissions
// and burst back to back.
func New(perSecond float64, burst int) *Limiters {
	if burst < 1 {
		burst = 1
	}
	return &Limiters{
		limit: rate.Limit(perSecond),
		burst: burst,
		m:     make(map[domain.PlayerID]*rate.Limiter),
	}
}

// For returns the limiter of a player, creating it on first use.
func (l *Limiters) For(playerID domain.PlayerID) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	if lim, ok := l.m[playerID]; ok {
		return lim
	}
	if len(l.m) >= pruneAt {
		l.pruneLocked(time.Now())
	}
	lim := rate.NewLimiter(l.limit, l.burst)
	l.m[playerID] = lim
	return lim
}

// Allow reports whether the player may submit now, spending a token if so.
func (l *Limiters) Allow(playerID domain.PlayerID) bool {
	return l.For(playerID).Allow()
}

// Len returns the number of tracked players
func (l *Limiters) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// pruneLocked drops limiters whose bucket has refilled; a fresh one would
// behave the same.
func (l *Limiters) pruneLocked(now time.Time) {
	for id, lim := range l.m {
		if lim.TokensAt(now) >= float64(l.burst) {
			delete(l.m, id)
		}
	}
}
