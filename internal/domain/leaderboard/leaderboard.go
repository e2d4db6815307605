// Package leaderboard aggregates per-event results into overall standings.
package leaderboard

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/tiebreak"
	"github.com/wodsmith/ranking/internal/domain/types"

	"golang.org/x/sync/errgroup"
)

// Scores holds every athlete's normalized input keyed by event id.
type Scores map[string][]scoring.EventScoreInput

// Option configures Compute.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the time stamped on computed standings.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Compute ranks every event of comp and resolves the overall standings.
// Events are ranked in parallel. Scores for events not defined on comp are
// ignored. The returned standings carry version 0; the store stamps it.
func Compute(ctx context.Context, comp model.Competition, scores Scores, opts ...Option) (types.Standings, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	cfg := comp.Scoring.Normalized()
	if err := cfg.Validate(); err != nil {
		return types.Standings{}, fmt.Errorf("competition %s: %w", comp.ID, err)
	}

	ranked := make([][]scoring.EventPointsResult, len(comp.Events))
	g, ctx := errgroup.WithContext(ctx)
	for i, ev := range comp.Events {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := scoring.RankEvent(ev.ID, scores[ev.ID], ev.Scheme, cfg,
				scoring.WithTiebreakScheme(ev.TiebreakScheme))
			if err != nil {
				return err
			}
			ranked[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return types.Standings{}, fmt.Errorf("competition %s: %w", comp.ID, err)
	}

	athletes := participants(comp, scores, cfg)
	entries := make(map[string]*types.StandingEntry, len(athletes))
	input := make([]tiebreak.Athlete, len(athletes))
	for i, id := range athletes {
		entries[id] = &types.StandingEntry{AthleteID: id, Events: make(map[string]types.Placement)}
		input[i] = tiebreak.Athlete{UserID: id, EventPlacements: make(map[string]int)}
	}
	index := make(map[string]int, len(athletes))
	for i, id := range athletes {
		index[id] = i
	}

	events := make(map[string][]scoring.EventPointsResult, len(comp.Events))
	for i, ev := range comp.Events {
		events[ev.ID] = ranked[i]
		// Under online scoring an athlete missing an event places last in it.
		missing := 0
		if cfg.Algorithm == scoring.AlgorithmOnline {
			missing = scoring.CalculateOnlinePoints(len(ranked[i]) + 1)
		}
		got := make(map[string]bool, len(ranked[i]))
		for _, r := range ranked[i] {
			idx, ok := index[r.UserID]
			if !ok {
				continue
			}
			got[r.UserID] = true
			input[idx].TotalPoints += r.Points
			input[idx].EventPlacements[ev.ID] = r.Rank
			entries[r.UserID].Events[ev.ID] = types.Placement{Rank: r.Rank, Points: r.Points}
		}
		for j, id := range athletes {
			if !got[id] {
				input[j].TotalPoints += missing
			}
		}
	}

	final, err := tiebreak.Apply(tiebreak.Input{
		Athletes:  input,
		Config:    cfg.Tiebreaker,
		Algorithm: cfg.Algorithm,
	})
	if err != nil {
		return types.Standings{}, fmt.Errorf("competition %s: %w", comp.ID, err)
	}

	names := make(map[string]string, len(comp.Athletes))
	for _, a := range comp.Athletes {
		names[a.ID] = a.Name
	}
	out := types.Standings{
		CompetitionID: comp.ID,
		Algorithm:     cfg.Algorithm,
		Entries:       make([]types.StandingEntry, 0, len(final)),
		Events:        events,
		ComputedAt:    o.now(),
	}
	for _, r := range final {
		e := entries[r.UserID]
		e.Rank = r.Rank
		e.TotalPoints = r.TotalPoints
		e.Name = names[r.UserID]
		out.Entries = append(out.Entries, *e)
	}
	return out, nil
}

// participants lists registered athletes in roster order, then any other
// athlete with a score sorted by id. Athletes withdrawn under an exclude
// policy are left out of the overall standings.
func participants(comp model.Competition, scores Scores, cfg scoring.Config) []string {
	withdrawn := make(map[string]bool)
	if cfg.StatusHandling.Withdrawn == scoring.PolicyExclude {
		for _, ev := range comp.Events {
			for _, s := range scores[ev.ID] {
				if s.Status == score.StatusWithdrawn {
					withdrawn[s.UserID] = true
				}
			}
		}
	}

	seen := make(map[string]bool)
	var out []string
	for _, a := range comp.Athletes {
		if !seen[a.ID] && !withdrawn[a.ID] {
			seen[a.ID] = true
			out = append(out, a.ID)
		}
	}
	var extra []string
	for _, ev := range comp.Events {
		for _, s := range scores[ev.ID] {
			if !seen[s.UserID] && !withdrawn[s.UserID] {
				seen[s.UserID] = true
				extra = append(extra, s.UserID)
			}
		}
	}
	slices.Sort(extra)
	return append(out, extra...)
}
