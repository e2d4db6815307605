// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"

	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
)

// ErrInvalidCompetition is returned when a competition definition is unusable.
var ErrInvalidCompetition = errors.New("invalid competition")

// EventDefinition describes one workout of a competition.
type EventDefinition struct {
	ID             string       `json:"id" yaml:"id"`
	Name           string       `json:"name,omitempty" yaml:"name,omitempty"`
	Scheme         score.Scheme `json:"scheme" yaml:"scheme"`
	TimeCapSeconds int          `json:"time_cap_seconds,omitempty" yaml:"time_cap_seconds,omitempty"`
	TiebreakScheme score.Scheme `json:"tiebreak_scheme,omitempty" yaml:"tiebreak_scheme,omitempty"`
}

// Workout returns the settings the score normalizer needs.
func (e EventDefinition) Workout() score.Workout {
	return score.Workout{
		Scheme:         e.Scheme,
		TimeCapSeconds: e.TimeCapSeconds,
		TiebreakScheme: e.TiebreakScheme,
	}
}

// Athlete is a registered competitor.
type Athlete struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
}

// Competition is the unit a leaderboard is computed for.
type Competition struct {
	ID       string            `json:"id" yaml:"id"`
	Name     string            `json:"name,omitempty" yaml:"name,omitempty"`
	Scoring  scoring.Config    `json:"scoring" yaml:"scoring"`
	Events   []EventDefinition `json:"events" yaml:"events"`
	Athletes []Athlete         `json:"athletes,omitempty" yaml:"athletes,omitempty"`
}

// Event looks up an event definition by id.
func (c *Competition) Event(id string) (EventDefinition, bool) {
	for _, e := range c.Events {
		if e.ID == id {
			return e, true
		}
	}
	return EventDefinition{}, false
}

// Validate checks ids, event schemes and the scoring config. The scoring
// config is normalized in place so stored competitions carry explicit
// defaults.
func (c *Competition) Validate() error {
	if strings.TrimSpace(c.ID) == "" {
		return fmt.Errorf("%w: id is required", ErrInvalidCompetition)
	}

	seen := make(map[string]struct{}, len(c.Events))
	for _, e := range c.Events {
		if strings.TrimSpace(e.ID) == "" {
			return fmt.Errorf("%w: event id is required", ErrInvalidCompetition)
		}
		if _, dup := seen[e.ID]; dup {
			return fmt.Errorf("%w: duplicate event %q", ErrInvalidCompetition, e.ID)
		}
		seen[e.ID] = struct{}{}
		if !e.Scheme.Valid() {
			return fmt.Errorf("%w: event %q has unknown scheme %q", ErrInvalidCompetition, e.ID, e.Scheme)
		}
		if e.TiebreakScheme != "" && !e.TiebreakScheme.Valid() {
			return fmt.Errorf("%w: event %q has unknown tiebreak scheme %q", ErrInvalidCompetition, e.ID, e.TiebreakScheme)
		}
		if e.TimeCapSeconds < 0 {
			return fmt.Errorf("%w: event %q has a negative time cap", ErrInvalidCompetition, e.ID)
		}
	}

	c.Scoring = c.Scoring.Normalized()
	if err := c.Scoring.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidCompetition, err)
	}
	if h2h := c.Scoring.Tiebreaker.HeadToHeadEventID; h2h != "" {
		if _, ok := seen[h2h]; !ok {
			return fmt.Errorf("%w: head-to-head event %q is not part of the competition", ErrInvalidCompetition, h2h)
		}
	}
	return nil
}
