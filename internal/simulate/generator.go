package simulate

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"

	"github.com/google/uuid"
)

// Percentages of entries that are not a clean score.
const (
	capPercent = 10
	dnfPercent = 4
	dnsPercent = 3
)

const franCapSeconds = 600

// Submission mirrors the body of a score submission request.
type Submission struct {
	SubmissionID string `json:"submission_id"`
	EventID      string `json:"event_id"`
	AthleteID    string `json:"athlete_id"`
	Score        string `json:"score"`
	Tiebreak     string `json:"tiebreak,omitempty"`
}

// Plan is a generated competition with one raw score per athlete and event.
type Plan struct {
	Competition model.Competition `json:"competition"`
	Submissions []Submission      `json:"submissions"`
	Withdrawn   []string          `json:"withdrawn,omitempty"`
}

// Generate builds a deterministic plan for cfg. Athlete and submission ids
// are random UUIDs; scores depend only on cfg.Seed.
func Generate(cfg *Config) Plan {
	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	id := cfg.CompetitionID
	if id == "" {
		id = "sim-" + uuid.NewString()[:8]
	}
	comp := model.Competition{
		ID:   id,
		Name: "Simulated Throwdown",
		Scoring: scoring.Config{
			Tiebreaker: scoring.TiebreakerConfig{Primary: scoring.TiebreakCountback},
		},
		Events: []model.EventDefinition{
			{ID: "fran", Name: "Fran", Scheme: score.SchemeTimeWithCap, TimeCapSeconds: franCapSeconds, TiebreakScheme: score.SchemeReps},
			{ID: "grace-total", Name: "Clean & Jerk", Scheme: score.SchemeLoad},
			{ID: "cindy", Name: "Cindy", Scheme: score.SchemeRoundsReps},
			{ID: "burpees", Name: "Burpees", Scheme: score.SchemeReps},
		},
	}

	comp.Athletes = make([]model.Athlete, cfg.Athletes)
	for i := range comp.Athletes {
		comp.Athletes[i] = model.Athlete{ID: uuid.NewString(), Name: "Athlete " + strconv.Itoa(i+1)}
	}

	plan := Plan{Competition: comp}
	for _, ev := range comp.Events {
		for _, a := range comp.Athletes {
			raw, tiebreak := rawScore(rng, ev)
			plan.Submissions = append(plan.Submissions, Submission{
				SubmissionID: uuid.NewString(),
				EventID:      ev.ID,
				AthleteID:    a.ID,
				Score:        raw,
				Tiebreak:     tiebreak,
			})
		}
	}

	for _, i := range rng.Perm(cfg.Athletes)[:cfg.Withdrawals] {
		plan.Withdrawn = append(plan.Withdrawn, comp.Athletes[i].ID)
	}
	return plan
}

// rawScore produces an entry the way a judge would type it.
func rawScore(rng *rand.Rand, ev model.EventDefinition) (raw, tiebreak string) {
	roll := rng.IntN(100)
	switch {
	case roll < dnsPercent:
		return "DNS", ""
	case roll < dnsPercent+dnfPercent:
		return "DNF", ""
	}

	switch ev.Scheme {
	case score.SchemeTimeWithCap:
		if roll < dnsPercent+dnfPercent+capPercent {
			return "CAP", strconv.Itoa(100 + rng.IntN(100))
		}
		secs := 150 + rng.IntN(ev.TimeCapSeconds-150)
		return fmt.Sprintf("%d:%02d", secs/60, secs%60), ""
	case score.SchemeLoad:
		return strconv.Itoa(135 + rng.IntN(270)), ""
	case score.SchemeRoundsReps:
		return fmt.Sprintf("%d+%d", 10+rng.IntN(16), rng.IntN(30)), ""
	default:
		return strconv.Itoa(50 + rng.IntN(100)), ""
	}
}
