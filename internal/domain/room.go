package domain

import (
	"sort"
	"time"
)

// Clock returns the current time in unix milliseconds
type Clock func() int64

// WallClock is the default Clock
func WallClock() int64 {
	return time.Now().UnixMilli()
}

// Room is the authoritative state of one game room. It is not safe for
// concurrent use; callers serialize access.
type Room struct {
	ID      RoomID          `json:"id"`
	Config  RoomConfig      `json:"config"`
	Phase   Phase           `json:"phase"`
	Round   int             `json:"round"`
	Winner  PlayerID        `json:"winner,omitempty"`
	History []*RoundSummary `json:"history"`

	players   map[PlayerID]struct{}
	words     []Word
	seen      map[string]struct{} // folded texts of words
	points    map[PlayerID]int    // totals: word scores minus penalties
	penalties map[PlayerID]int    // accrued penalty magnitudes

	scoring ScoringPolicy
	win     WinPolicy
	clock   Clock
	last    int64
}

// Submission is the result of an accepted word
type Submission struct {
	Word    Word        `json:"word"`
	Points  int         `json:"points"`
	Total   int         `json:"total"`
	Penalty int         `json:"penalty,omitempty"`
	Winner  PlayerID    `json:"winner,omitempty"`
	Events  []RoomEvent `json:"-"`
}

// NewRoom creates an open room. The policies must already be resolved; a
// nil clock uses the wall clock.
func NewRoom(id RoomID, cfg RoomConfig, scoring ScoringPolicy, win WinPolicy, clock Clock) *Room {
	if clock == nil {
		clock = WallClock
	}
	return &Room{
		ID:        id,
		Config:    cfg,
		Phase:     PhaseOpen,
		Round:     1,
		History:   make([]*RoundSummary, 0),
		players:   make(map[PlayerID]struct{}),
		words:     make([]Word, 0),
		seen:      make(map[string]struct{}),
		points:    make(map[PlayerID]int),
		penalties: make(map[PlayerID]int),
		scoring:   scoring,
		win:       win,
		clock:     clock,
	}
}

// stamp returns a logical timestamp that never goes backwards.
func (r *Room) stamp() int64 {
	now := r.clock()
	if now < r.last {
		now = r.last
	}
	r.last = now
	return now
}

func (r *Room) event(t EventType, playerID PlayerID, payload interface{}) RoomEvent {
	return RoomEvent{
		Type:     t,
		RoomID:   r.ID,
		PlayerID: playerID,
		Payload:  payload,
		Time:     r.stamp(),
	}
}

// AddPlayer adds a player to the room. Re-joining while present succeeds
// without events; a returning player keeps their points.
func (r *Room) AddPlayer(id PlayerID) ([]RoomEvent, error) {
	if !id.Valid() {
		return nil, ErrInvalidPlayerID
	}
	if _, ok := r.players[id]; ok {
		return nil, nil
	}
	if len(r.players) >= r.Config.Capacity {
		return nil, ErrRoomFull
	}

	r.players[id] = struct{}{}
	if _, ok := r.points[id]; !ok {
		r.points[id] = 0
	}

	return []RoomEvent{r.event(EventJoin, id, nil)}, nil
}

// RemovePlayer removes a player from the room, keeping their words and
// points. It reports whether the player is absent afterwards.
func (r *Room) RemovePlayer(id PlayerID) ([]RoomEvent, bool) {
	if _, ok := r.players[id]; !ok {
		return nil, true
	}
	delete(r.players, id)
	_, still := r.players[id]
	return []RoomEvent{r.event(EventLeave, id, nil)}, !still
}

// HasPlayer checks if the player is currently in the room
func (r *Room) HasPlayer(id PlayerID) bool {
	_, ok := r.players[id]
	return ok
}

// PlayerCount returns the number of players in the room
func (r *Room) PlayerCount() int {
	return len(r.players)
}

// Players returns the ids of current players, ascending
func (r *Room) Players() []PlayerID {
	ids := make([]PlayerID, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	return SortPlayerIDs(ids)
}

// SubmitWord validates and applies a word known to the dictionary. Checks
// run in order: phase, membership, letters, duplicate, chain rule, then the
// optional turn rule. A returned *Rejection means nothing changed.
func (r *Room) SubmitWord(playerID PlayerID, text string, at int64) (*Submission, error) {
	return r.SubmitChecked(playerID, text, at, true)
}

// SubmitChecked is SubmitWord with the dictionary verdict for the word.
// An unknown word is accepted, and the configured dictionary penalty is
// charged before the win condition is evaluated.
func (r *Room) SubmitChecked(playerID PlayerID, text string, at int64, known bool) (*Submission, error) {
	text = NormalizeText(text)
	if r.Phase == PhaseFinished {
		return nil, reject(ReasonGameOver, text)
	}
	if !r.HasPlayer(playerID) {
		return nil, reject(ReasonNotMember, text)
	}
	if !IsWordText(text) {
		return nil, reject(ReasonInvalidFormat, text)
	}
	if _, dup := r.seen[FoldText(text)]; dup {
		return nil, reject(ReasonDuplicateWord, text)
	}
	if last, ok := r.LastWord(); ok {
		if !Chains(last.Text, text) {
			return nil, reject(ReasonWrongChainStart, text)
		}
		if r.Config.ForbidConsecutive && last.PlayerID == playerID {
			return nil, reject(ReasonNotYourTurn, text)
		}
	}

	now := r.stamp()
	word := NewWord(playerID, text, at, now)
	r.words = append(r.words, word)
	r.seen[FoldText(text)] = struct{}{}

	delta := r.scoring.Score(word, r.Config)
	r.points[playerID] += delta

	sub := &Submission{
		Word:   word,
		Points: delta,
		Total:  r.points[playerID],
	}
	sub.Events = append(sub.Events,
		r.event(EventInput, playerID, &InputPayload{Word: word.Text, Time: word.Time}),
		r.event(EventPoints, playerID, &PointsPayload{Points: delta, Total: sub.Total, Word: word.Text}),
	)
	if penalty := r.Config.DictionaryPenalty; !known && penalty > 0 {
		r.penalties[playerID] += penalty
		r.points[playerID] -= penalty
		sub.Penalty = penalty
		sub.Total = r.points[playerID]
		sub.Events = append(sub.Events, r.event(EventPoints, playerID, &PointsPayload{
			Points: -penalty,
			Total:  sub.Total,
			Reason: ReasonNotInDictionary,
			Word:   word.Text,
		}))
	}
	if ev, ok := r.evaluateWin(); ok {
		sub.Winner = r.Winner
		sub.Events = append(sub.Events, ev)
	}
	return sub, nil
}

// Penalize records a negative adjustment for a player who has a ledger
// entry, then re-evaluates the win condition.
func (r *Room) Penalize(playerID PlayerID, magnitude int, reason RejectReason, word string) ([]RoomEvent, error) {
	if magnitude <= 0 {
		return nil, ErrInvalidPenalty
	}
	if _, ok := r.points[playerID]; !ok {
		return nil, ErrPlayerNotFound
	}
	if r.Phase == PhaseFinished {
		return nil, ErrInvalidPhase
	}

	r.penalties[playerID] += magnitude
	r.points[playerID] -= magnitude

	events := []RoomEvent{r.event(EventPoints, playerID, &PointsPayload{
		Points: -magnitude,
		Total:  r.points[playerID],
		Reason: reason,
		Word:   word,
	})}
	if ev, ok := r.evaluateWin(); ok {
		events = append(events, ev)
	}
	return events, nil
}

// evaluateWin asks the win policy for a winner and finishes the round if
// one is named.
func (r *Room) evaluateWin() (RoomEvent, bool) {
	if r.Phase != PhaseOpen {
		return RoomEvent{}, false
	}
	winner, ok := r.win.Winner(r.Config, r.Points())
	if !ok || !winner.Valid() {
		return RoomEvent{}, false
	}
	r.Phase = PhaseFinished
	r.Winner = winner
	return r.event(EventWin, winner, &WinPayload{Points: r.points[winner], Round: r.Round}), true
}

// Reset archives the current round and starts a new one. Membership is
// kept; ledgers are cleared and current players start from zero.
func (r *Room) Reset() ([]RoomEvent, error) {
	if !r.Phase.CanTransitionTo(PhaseOpen) {
		return nil, ErrInvalidPhase
	}

	summary := &RoundSummary{
		Number:  r.Round,
		Winner:  r.Winner,
		Words:   len(r.words),
		Points:  r.Points(),
		EndedAt: r.stamp(),
	}
	r.History = append(r.History, summary)

	r.words = make([]Word, 0)
	r.seen = make(map[string]struct{})
	r.penalties = make(map[PlayerID]int)
	r.points = make(map[PlayerID]int, len(r.players))
	for id := range r.players {
		r.points[id] = 0
	}
	r.Winner = NoPlayer
	r.Phase = PhaseOpen
	r.Round++

	return []RoomEvent{r.event(EventReset, NoPlayer, &ResetPayload{Round: r.Round, Previous: summary})}, nil
}

// Restore loads ledgers decoded from a snapshot into a fresh room. Points
// are recomputed by replay; a winner found by the policy finishes the round
// without emitting events.
func (r *Room) Restore(words []Word, penalties []Penalty, members []PlayerID) {
	for _, id := range members {
		if !id.Valid() || len(r.players) >= r.Config.Capacity {
			continue
		}
		r.players[id] = struct{}{}
		if _, ok := r.points[id]; !ok {
			r.points[id] = 0
		}
	}
	for _, w := range words {
		r.words = append(r.words, w)
		r.seen[FoldText(w.Text)] = struct{}{}
		if w.Time > r.last {
			r.last = w.Time
		}
	}
	if now := r.clock(); r.last > now {
		r.last = now
	}
	for id, score := range ReplayScores(r.words, r.scoring, r.Config) {
		r.points[id] += score
	}
	for _, p := range penalties {
		if !p.PlayerID.Valid() || p.Magnitude <= 0 {
			continue
		}
		r.penalties[p.PlayerID] += p.Magnitude
		r.points[p.PlayerID] -= p.Magnitude
	}
	r.evaluateWin()
}

// LastWord returns the most recently accepted word
func (r *Room) LastWord() (Word, bool) {
	if len(r.words) == 0 {
		return Word{}, false
	}
	return r.words[len(r.words)-1], true
}

// Words returns a copy of the word ledger in submission order
func (r *Room) Words() []Word {
	out := make([]Word, len(r.words))
	copy(out, r.words)
	return out
}

// WordCount returns the number of accepted words
func (r *Room) WordCount() int {
	return len(r.words)
}

// Points returns a copy of the point ledger
func (r *Room) Points() map[PlayerID]int {
	out := make(map[PlayerID]int, len(r.points))
	for id, pts := range r.points {
		out[id] = pts
	}
	return out
}

// PointsOf returns one player's total and whether they have a ledger entry
func (r *Room) PointsOf(id PlayerID) (int, bool) {
	pts, ok := r.points[id]
	return pts, ok
}

// Penalties returns non-zero penalty totals ordered by player id
func (r *Room) Penalties() []Penalty {
	out := make([]Penalty, 0, len(r.penalties))
	for id, m := range r.penalties {
		if m > 0 {
			out = append(out, Penalty{PlayerID: id, Magnitude: m})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// ScoringPolicy returns the policy the room scores words with
func (r *Room) ScoringPolicy() ScoringPolicy {
	return r.scoring
}

// WinPolicy returns the policy the room evaluates winners with
func (r *Room) WinPolicy() WinPolicy {
	return r.win
}

// GetPlayerInfoList returns every player with a ledger entry, ascending
func (r *Room) GetPlayerInfoList() []PlayerInfo {
	counts := make(map[PlayerID]int)
	for _, w := range r.words {
		counts[w.PlayerID]++
	}
	ids := make([]PlayerID, 0, len(r.points))
	for id := range r.points {
		ids = append(ids, id)
	}
	SortPlayerIDs(ids)

	players := make([]PlayerInfo, 0, len(ids))
	for _, id := range ids {
		players = append(players, PlayerInfo{
			ID:      id,
			Points:  r.points[id],
			Penalty: r.penalties[id],
			InRoom:  r.HasPlayer(id),
			Words:   counts[id],
		})
	}
	return players
}
