// Package hub fans room events out to the players subscribed to a room.
//
// Each player has at most one live subscription; registering again replaces
// the previous one, which learns about it through Done and Err. Deliveries
// to one subscription keep broadcast order. A sink that fails or falls too
// far behind is dropped without affecting anyone else.
package hub

import (
	"errors"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"

	"wordchain/internal/domain"
)

// DefaultBuffer is the per-subscription queue length
const DefaultBuffer = 64

// Subscription end reasons
var (
	ErrSuperseded   = errors.New("subscription superseded by a newer one")
	ErrUnsubscribed = errors.New("subscription cancelled")
	ErrSlowConsumer = errors.New("subscription queue overflow")
	ErrHubClosed    = errors.New("hub closed")
	ErrSinkClosed   = errors.New("sink closed")
)

// Delivery is one event as handed to a sink. Sequence is hub-scoped and
// strictly increasing; it is meant for client-side diagnostics.
type Delivery struct {
	Sequence uint64
	Event    domain.RoomEvent
}

// Sink receives deliveries for one player. An error ends the subscription.
type Sink interface {
	Deliver(d Delivery) error
}

// SinkFunc adapts a function to Sink
type SinkFunc func(d Delivery) error

// Deliver calls f(d)
func (f SinkFunc) Deliver(d Delivery) error { return f(d) }

// Option configures a Hub
type Option func(*Hub)

// WithBuffer sets the per-subscription queue length
func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// Hub is the registry of subscriptions for one room
type Hub struct {
	roomID domain.RoomID
	logger *slog.Logger
	buffer int

	mu         sync.Mutex
	subs       map[domain.PlayerID]*Subscription
	sequence   uint64
	generation uint64
	closed     bool
}

// New creates a hub for a room
func New(roomID domain.RoomID, logger *slog.Logger, opts ...Option) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{
		roomID: roomID,
		logger: logger,
		buffer: DefaultBuffer,
		subs:   make(map[domain.PlayerID]*Subscription),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register installs sink as the player's only subscription. A previous
// subscription for the player ends with ErrSuperseded.
func (h *Hub) Register(playerID domain.PlayerID, sink Sink) (*Subscription, error) {
	if !playerID.Valid() {
		return nil, domain.ErrInvalidPlayerID
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrHubClosed
	}

	h.generation++
	sub := newSubscription(h, playerID, h.generation, sink, h.buffer)
	old := h.subs[playerID]
	h.subs[playerID] = sub
	go sub.pump()

	if old != nil {
		old.end(ErrSuperseded)
		h.logger.Debug("subscription superseded",
			"roomID", h.roomID,
			"playerID", playerID,
			"generation", old.Generation,
		)
	}
	return sub, nil
}

// Unregister removes sub if it is still the player's current subscription.
// It reports whether anything was removed.
func (h *Hub) Unregister(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	h.mu.Lock()
	current := h.subs[sub.PlayerID] == sub
	if current {
		delete(h.subs, sub.PlayerID)
	}
	h.mu.Unlock()

	sub.end(ErrUnsubscribed)
	return current
}

// UnregisterPlayer removes whatever subscription the player has.
func (h *Hub) UnregisterPlayer(playerID domain.PlayerID) bool {
	h.mu.Lock()
	sub, ok := h.subs[playerID]
	if ok {
		delete(h.subs, playerID)
	}
	h.mu.Unlock()

	if ok {
		sub.end(ErrUnsubscribed)
	}
	return ok
}

// Broadcast queues ev for every subscription and returns its sequence
// number. It never blocks on a sink.
func (h *Hub) Broadcast(ev domain.RoomEvent) uint64 {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return 0
	}
	h.sequence++
	d := Delivery{Sequence: h.sequence, Event: ev}

	var overflow []*Subscription
	for _, sub := range h.subs {
		if !sub.offer(d) {
			overflow = append(overflow, sub)
		}
	}
	h.mu.Unlock()

	for _, sub := range overflow {
		h.drop(sub, ErrSlowConsumer)
	}
	return d.Sequence
}

// Send queues ev for a single player. It reports whether the player had a
// subscription that accepted it.
func (h *Hub) Send(playerID domain.PlayerID, ev domain.RoomEvent) bool {
	h.mu.Lock()
	sub, ok := h.subs[playerID]
	if !ok || h.closed {
		h.mu.Unlock()
		return false
	}
	h.sequence++
	accepted := sub.offer(Delivery{Sequence: h.sequence, Event: ev})
	h.mu.Unlock()

	if !accepted {
		h.drop(sub, ErrSlowConsumer)
	}
	return accepted
}

// drop removes a failed subscription. It is the only path by which sink
// failures surface, and they surface only in the log.
func (h *Hub) drop(sub *Subscription, reason error) {
	h.mu.Lock()
	if h.subs[sub.PlayerID] == sub {
		delete(h.subs, sub.PlayerID)
	}
	h.mu.Unlock()

	sub.end(reason)
	h.logger.Debug("subscription dropped",
		"roomID", h.roomID,
		"playerID", sub.PlayerID,
		"error", reason,
	)
}

// Subscribers returns the players with a live subscription, ascending
func (h *Hub) Subscribers() []domain.PlayerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	ids := make([]domain.PlayerID, 0, len(h.subs))
	for id := range h.subs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Current returns the player's live subscription, if any
func (h *Hub) Current(playerID domain.PlayerID) (*Subscription, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	sub, ok := h.subs[playerID]
	return sub, ok
}

// Sequence returns the last sequence number handed out
func (h *Hub) Sequence() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.sequence
}

// Close ends every subscription; later registrations fail
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = make(map[domain.PlayerID]*Subscription)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.end(ErrHubClosed)
	}
}

// Subscription is one player's registration with a hub
type Subscription struct {
	ID         uuid.UUID
	PlayerID   domain.PlayerID
	Generation uint64

	hub   *Hub
	sink  Sink
	queue chan Delivery
	done  chan struct{}

	mu  sync.Mutex
	err error
}

func newSubscription(h *Hub, playerID domain.PlayerID, generation uint64, sink Sink, buffer int) *Subscription {
	return &Subscription{
		ID:         uuid.New(),
		PlayerID:   playerID,
		Generation: generation,
		hub:        h,
		sink:       sink,
		queue:      make(chan Delivery, buffer),
		done:       make(chan struct{}),
	}
}

// Done is closed when the subscription ends for any reason
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err returns why the subscription ended, or nil while it is live
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Superseded reports whether a newer registration replaced this one
func (s *Subscription) Superseded() bool {
	return errors.Is(s.Err(), ErrSuperseded)
}

// offer queues d without blocking. Called with the hub lock held.
func (s *Subscription) offer(d Delivery) bool {
	select {
	case <-s.done:
		return true
	default:
	}
	select {
	case s.queue <- d:
		return true
	default:
		return false
	}
}

func (s *Subscription) end(reason error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}
	s.err = reason
	close(s.done)
}

// pump hands queued deliveries to the sink one at a time.
func (s *Subscription) pump() {
	for {
		select {
		case <-s.done:
			return
		case d := <-s.queue:
			if err := s.sink.Deliver(d); err != nil {
				s.hub.drop(s, err)
				return
			}
		}
	}
}
