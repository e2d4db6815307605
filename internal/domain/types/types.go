// Package types contains the leaderboard types shared across layers.
package types

import (
	"time"

	"github.com/wodsmith/ranking/internal/domain/scoring"
)

// Placement is an athlete's result in a single event.
type Placement struct {
	Rank   int `json:"rank"`
	Points int `json:"points"`
}

// StandingEntry is one row of the overall leaderboard.
type StandingEntry struct {
	Rank        int                  `json:"rank"`
	AthleteID   string               `json:"athlete_id"`
	Name        string               `json:"name,omitempty"`
	TotalPoints int                  `json:"total_points"`
	Events      map[string]Placement `json:"events"`
}

// Standings is a computed leaderboard snapshot for one competition.
type Standings struct {
	CompetitionID string                                 `json:"competition_id"`
	Version       uint64                                 `json:"version"`
	Algorithm     scoring.Algorithm                      `json:"algorithm"`
	Entries       []StandingEntry                        `json:"entries"`
	Events        map[string][]scoring.EventPointsResult `json:"events"`
	ComputedAt    time.Time                              `json:"computed_at"`
}

// Top returns at most n entries. n <= 0 returns every entry.
func (s *Standings) Top(n int) []StandingEntry {
	if n <= 0 || n >= len(s.Entries) {
		return s.Entries
	}
	return s.Entries[:n]
}

// Entry returns the standing of one athlete.
func (s *Standings) Entry(athleteID string) (StandingEntry, bool) {
	for _, e := range s.Entries {
		if e.AthleteID == athleteID {
			return e, true
		}
	}
	return StandingEntry{}, false
}
