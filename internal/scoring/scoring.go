// Package scoring holds the fixed registries of scoring and win condition
// policies. Rooms select policies by id at creation; an id without a
// registered handler degrades to the default policy.
package scoring

import (
	"sort"

	"wordchain/internal/domain"
)

// Scoring policy ids. The gap before 101 is reserved for "safe" variants.
const (
	FlatID          = 0
	ThresholdID     = 1
	LengthID        = 2
	SafeThresholdID = 101
)

// Win condition ids
const (
	EndlessID      = 0
	FirstToReachID = 1
)

type policy struct {
	id          int
	description string
}

func (p policy) ID() int             { return p.id }
func (p policy) Description() string { return p.description }

// Flat awards one point per word.
type Flat struct{ policy }

func (Flat) Score(domain.Word, domain.RoomConfig) int { return 1 }

// Length awards one point per letter.
type Length struct{ policy }

func (Length) Score(w domain.Word, _ domain.RoomConfig) int { return w.Length() }

// Threshold awards length minus N, which is negative for short words.
type Threshold struct{ policy }

func (Threshold) Score(w domain.Word, cfg domain.RoomConfig) int {
	return w.Length() - cfg.ScoreLength()
}

// SafeThreshold awards length minus N for words longer than N and a flat
// point otherwise.
type SafeThreshold struct{ policy }

func (SafeThreshold) Score(w domain.Word, cfg domain.RoomConfig) int {
	n := cfg.ScoreLength()
	if w.Length() > n {
		return w.Length() - n
	}
	return 1
}

// Endless never declares a winner.
type Endless struct{ policy }

func (Endless) Winner(domain.RoomConfig, map[domain.PlayerID]int) (domain.PlayerID, bool) {
	return domain.NoPlayer, false
}

// FirstToReach declares the first player at or above the target. Ties
// resolve to the lowest player id so replays agree.
type FirstToReach struct{ policy }

func (FirstToReach) Winner(cfg domain.RoomConfig, points map[domain.PlayerID]int) (domain.PlayerID, bool) {
	target := cfg.WinPoints()
	ids := make([]domain.PlayerID, 0, len(points))
	for id, pts := range points {
		if pts >= target {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return domain.NoPlayer, false
	}
	return domain.SortPlayerIDs(ids)[0], true
}

var (
	defaultScoring = Flat{policy{FlatID, "default"}}
	defaultWin     = Endless{policy{EndlessID, "default"}}

	scoringPolicies = map[int]domain.ScoringPolicy{
		FlatID:          defaultScoring,
		ThresholdID:     Threshold{policy{ThresholdID, "+1overN"}},
		LengthID:        Length{policy{LengthID, "length"}},
		SafeThresholdID: SafeThreshold{policy{SafeThresholdID, "+1overN_safe"}},
	}

	winPolicies = map[int]domain.WinPolicy{
		EndlessID:      defaultWin,
		FirstToReachID: FirstToReach{policy{FirstToReachID, "overN"}},
	}
)

// LookupScoring returns the scoring policy for id. The second result is
// false when the id fell back to the default.
func LookupScoring(id int) (domain.ScoringPolicy, bool) {
	if p, ok := scoringPolicies[id]; ok {
		return p, true
	}
	return defaultScoring, false
}

// LookupWin returns the win condition for id, falling back like LookupScoring.
func LookupWin(id int) (domain.WinPolicy, bool) {
	if p, ok := winPolicies[id]; ok {
		return p, true
	}
	return defaultWin, false
}

// Descriptor is the public listing of a registered policy
type Descriptor struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// ScoringDescriptors lists the registered scoring policies by id
func ScoringDescriptors() []Descriptor {
	out := make([]Descriptor, 0, len(scoringPolicies))
	for _, p := range scoringPolicies {
		out = append(out, Descriptor{ID: p.ID(), Description: p.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WinDescriptors lists the registered win conditions by id
func WinDescriptors() []Descriptor {
	out := make([]Descriptor, 0, len(winPolicies))
	for _, p := range winPolicies {
		out = append(out, Descriptor{ID: p.ID(), Description: p.Description()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
