package scoring

import (
	"fmt"
	"slices"

	"github.com/wodsmith/ranking/internal/domain/score"
)

// EventScoreInput is one athlete's normalized result in an event.
type EventScoreInput struct {
	UserID string       `json:"user_id" yaml:"user_id"`
	Value  int64        `json:"value" yaml:"value"`
	Status score.Status `json:"status" yaml:"status"`
	// Secondary is the tiebreak value, when one was recorded.
	Secondary *int64 `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// EventPointsResult is the placement and points earned in one event.
type EventPointsResult struct {
	UserID string `json:"user_id"`
	Points int    `json:"points"`
	Rank   int    `json:"rank"`
}

// EventOption configures a single event computation.
type EventOption func(*eventOptions)

type eventOptions struct {
	tiebreak score.Scheme
}

// WithTiebreakScheme orders equal primary values by the secondary value in
// the direction of scheme. Empty schemes are ignored.
func WithTiebreakScheme(scheme score.Scheme) EventOption {
	return func(o *eventOptions) {
		if scheme.Valid() {
			o.tiebreak = scheme
		}
	}
}

// CalculateEventPoints ranks one event and awards points per cfg. Athletes
// whose status is excluded by cfg are absent from the result.
func CalculateEventPoints(
	eventID string,
	scores []EventScoreInput,
	scheme score.Scheme,
	cfg Config,
	opts ...EventOption,
) (map[string]EventPointsResult, error) {
	ranked, err := RankEvent(eventID, scores, scheme, cfg, opts...)
	if err != nil {
		return nil, err
	}
	out := make(map[string]EventPointsResult, len(ranked))
	for _, r := range ranked {
		out[r.UserID] = r
	}
	return out, nil
}

// RankEvent is CalculateEventPoints returning results ordered by rank.
// Athletes sharing a rank keep their input order.
func RankEvent(
	eventID string,
	scores []EventScoreInput,
	scheme score.Scheme,
	cfg Config,
	opts ...EventOption,
) ([]EventPointsResult, error) {
	if !scheme.Valid() {
		return nil, fmt.Errorf("event %s: %w: %q", eventID, score.ErrInvalidScheme, scheme)
	}
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("event %s: %w", eventID, err)
	}

	var o eventOptions
	for _, opt := range opts {
		opt(&o)
	}

	var active, dnf, penalized []EventScoreInput
	for _, s := range scores {
		switch s.Status {
		case score.StatusScored, score.StatusCap:
			active = append(active, s)
		case score.StatusDNF:
			if cfg.StatusHandling.DNF != PolicyExclude {
				dnf = append(dnf, s)
			}
		default:
			if cfg.StatusHandling.PolicyFor(s.Status) != PolicyExclude {
				penalized = append(penalized, s)
			}
		}
	}
	considered := len(active) + len(dnf) + len(penalized)
	results := make([]EventPointsResult, 0, considered)
	if considered == 0 {
		return results, nil
	}

	c := newComparer(scheme, o.tiebreak)
	slices.SortStableFunc(active, c.compare)

	rank := 0
	for i, s := range active {
		if i == 0 || c.compare(active[i-1], s) != 0 {
			rank = i + 1
		}
		results = append(results, EventPointsResult{UserID: s.UserID, Rank: rank})
	}
	if cfg.Algorithm == AlgorithmPScore {
		assignPScores(results, active, cfg.PScore)
	} else {
		for i := range results {
			results[i].Points = cfg.placePoints(results[i].Rank)
		}
	}

	// Standard ranking: DNFs place directly behind every active athlete.
	dnfRank := len(active) + 1
	for _, s := range dnf {
		results = append(results, cfg.penalty(s, dnfRank, results[:len(active)]))
	}
	penaltyRank := considered + 1
	for _, s := range penalized {
		results = append(results, cfg.penalty(s, penaltyRank, results[:len(active)]))
	}
	return results, nil
}

// penalty scores a non-finishing athlete at rank under its status policy.
func (c Config) penalty(s EventScoreInput, rank int, active []EventPointsResult) EventPointsResult {
	r := EventPointsResult{UserID: s.UserID, Rank: rank}
	switch {
	case c.StatusHandling.PolicyFor(s.Status) == PolicyZero:
		r.Points = 0
	case c.Algorithm == AlgorithmPScore:
		r.Points = 0
		for _, a := range active {
			r.Points = min(r.Points, a.Points)
		}
	default:
		r.Points = c.placePoints(rank)
	}
	return r
}

// assignPScores fills points for the rank-ordered active results.
func assignPScores(results []EventPointsResult, active []EventScoreInput, cfg PScoreConfig) {
	best := active[0].Value
	field := make([]int64, len(active))
	for i, s := range active {
		field[i] = s.Value
	}
	if cfg.MedianField == MedianTopHalf {
		field = field[:(len(field)+1)/2]
	}
	median := medianOf(field)

	worstClean, hasClean := 0, false
	for i, s := range active {
		results[i].Points = CalculatePScore(s.Value, best, median, cfg.AllowNegatives)
		if s.Status == score.StatusScored {
			if !hasClean || results[i].Points < worstClean {
				worstClean = results[i].Points
			}
			hasClean = true
		}
	}
	// Capped athletes placed behind every finisher never outscore one.
	if hasClean {
		for i, s := range active {
			if s.Status == score.StatusCap && results[i].Points > worstClean {
				results[i].Points = worstClean
			}
		}
	}
}

// medianOf expects values in ranking order; it sorts a copy numerically.
func medianOf(values []int64) float64 {
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return (float64(sorted[n/2-1]) + float64(sorted[n/2])) / 2
}

type comparer struct {
	primary     score.Direction
	secondary   score.Direction
	hasTiebreak bool
}

func newComparer(scheme, tiebreak score.Scheme) comparer {
	c := comparer{primary: scheme.Direction(), secondary: score.Descending}
	if tiebreak != "" {
		c.secondary = tiebreak.Direction()
		c.hasTiebreak = true
	}
	return c
}

// compare orders a before b when a placed better. Clean finishes beat
// capped ones; capped athletes order among themselves by secondary only.
func (c comparer) compare(a, b EventScoreInput) int {
	aCap, bCap := a.Status == score.StatusCap, b.Status == score.StatusCap
	if aCap != bCap {
		if aCap {
			return 1
		}
		return -1
	}
	if aCap {
		return c.compareSecondary(a.Secondary, b.Secondary)
	}
	if v := c.primary.Compare(a.Value, b.Value); v != 0 {
		return v
	}
	if c.hasTiebreak {
		return c.compareSecondary(a.Secondary, b.Secondary)
	}
	return 0
}

// compareSecondary sorts missing values last.
func (c comparer) compareSecondary(a, b *int64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	return c.secondary.Compare(*a, *b)
}
