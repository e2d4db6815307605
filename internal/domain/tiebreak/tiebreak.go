// Package tiebreak turns overall point totals into final standings,
// resolving equal totals with countback and head-to-head rules.
package tiebreak

import (
	"cmp"
	"math"
	"slices"

	"github.com/wodsmith/ranking/internal/domain/scoring"
)

// Athlete is one competitor's overall total and per-event placements.
type Athlete struct {
	UserID          string         `json:"user_id"`
	TotalPoints     int            `json:"total_points"`
	EventPlacements map[string]int `json:"event_placements"`
}

// RankedAthlete is an athlete's final overall rank.
type RankedAthlete struct {
	UserID      string `json:"user_id"`
	TotalPoints int    `json:"total_points"`
	Rank        int    `json:"rank"`
}

// Input is everything Apply needs. Algorithm decides the sort direction of
// totals: online totals rank ascending, all others descending.
type Input struct {
	Athletes  []Athlete
	Config    scoring.TiebreakerConfig
	Algorithm scoring.Algorithm
}

// Apply ranks athletes by total points and breaks ties per the configured
// primary then secondary method. The config is validated before anything
// is computed; no partial result is returned on error.
func Apply(in Input) ([]RankedAthlete, error) {
	cfg := in.Config
	if cfg.Primary == "" {
		cfg.Primary = scoring.TiebreakNone
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	methods := []scoring.TiebreakMethod{cfg.Primary}
	if cfg.Secondary != "" {
		methods = append(methods, cfg.Secondary)
	}
	r := resolver{athletes: in.Athletes, headToHead: cfg.HeadToHeadEventID}

	order := make([]int, len(in.Athletes))
	for i := range order {
		order[i] = i
	}
	lowerWins := in.Algorithm.LowerIsBetter()
	slices.SortStableFunc(order, func(a, b int) int {
		c := cmp.Compare(in.Athletes[a].TotalPoints, in.Athletes[b].TotalPoints)
		if lowerWins {
			return c
		}
		return -c
	})

	out := make([]RankedAthlete, 0, len(order))
	for start := 0; start < len(order); {
		end := start + 1
		total := in.Athletes[order[start]].TotalPoints
		for end < len(order) && in.Athletes[order[end]].TotalPoints == total {
			end++
		}
		group, rel := r.resolve(order[start:end], methods)
		for i, idx := range group {
			out = append(out, RankedAthlete{
				UserID:      in.Athletes[idx].UserID,
				TotalPoints: total,
				Rank:        start + 1 + rel[i],
			})
		}
		start = end
	}
	return out, nil
}

type resolver struct {
	athletes   []Athlete
	headToHead string
}

// resolve orders a tie group with the first method and recurses into the
// residual ties with the rest. rel holds each member's rank offset from the
// start of the group; members still tied share an offset.
func (r resolver) resolve(group []int, methods []scoring.TiebreakMethod) ([]int, []int) {
	rel := make([]int, len(group))
	if len(group) < 2 || len(methods) == 0 {
		return group, rel
	}

	var compare func(a, b int) int
	switch methods[0] {
	case scoring.TiebreakCountback:
		compare = r.countback(group)
	case scoring.TiebreakHeadToHead:
		compare = r.compareHeadToHead
	default:
		return r.resolve(group, methods[1:])
	}

	sorted := slices.Clone(group)
	slices.SortStableFunc(sorted, compare)
	for s := 0; s < len(sorted); {
		e := s + 1
		for e < len(sorted) && compare(sorted[s], sorted[e]) == 0 {
			e++
		}
		sub, subRel := r.resolve(sorted[s:e], methods[1:])
		copy(sorted[s:e], sub)
		for i := s; i < e; i++ {
			rel[i] = s + subRel[i-s]
		}
		s = e
	}
	return sorted, rel
}

// countback compares how many 1st places, then 2nd places and so on each
// athlete holds, up to the worst placement seen in the group.
func (r resolver) countback(group []int) func(a, b int) int {
	maxPlace := 0
	for _, idx := range group {
		for _, p := range r.athletes[idx].EventPlacements {
			maxPlace = max(maxPlace, p)
		}
	}
	counts := make(map[int][]int, len(group))
	for _, idx := range group {
		v := make([]int, maxPlace)
		for _, p := range r.athletes[idx].EventPlacements {
			if p >= 1 {
				v[p-1]++
			}
		}
		counts[idx] = v
	}
	return func(a, b int) int {
		// More finishes at a place wins, so compare b against a.
		return slices.Compare(counts[b], counts[a])
	}
}

// compareHeadToHead prefers the better placement in the designated event.
// A missing placement is worst.
func (r resolver) compareHeadToHead(a, b int) int {
	return cmp.Compare(r.placement(a), r.placement(b))
}

func (r resolver) placement(idx int) int {
	if p, ok := r.athletes[idx].EventPlacements[r.headToHead]; ok && p >= 1 {
		return p
	}
	return math.MaxInt
}
