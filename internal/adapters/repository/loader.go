package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"

	"gopkg.in/yaml.v3"
)

// ErrInvalidFixture is returned for unreadable or inconsistent fixture files.
var ErrInvalidFixture = errors.New("invalid competition fixture")

// RawScore is a score as typed by a judge, before normalization.
type RawScore struct {
	Event    string `yaml:"event" json:"event"`
	Athlete  string `yaml:"athlete" json:"athlete"`
	Score    string `yaml:"score" json:"score"`
	Tiebreak string `yaml:"tiebreak,omitempty" json:"tiebreak,omitempty"`
}

// Fixture is a competition definition plus optional raw scores, as stored
// in a YAML file.
type Fixture struct {
	model.Competition `yaml:",inline"`
	Scores            []RawScore `yaml:"scores,omitempty"`
	Path              string     `yaml:"-"`
}

// NormalizedScores parses every raw score against its event definition.
func (f *Fixture) NormalizedScores() (leaderboard.Scores, error) {
	byEvent := make(map[string][]score.NormalizedScore)
	for i, rs := range f.Scores {
		def, ok := f.Event(rs.Event)
		if !ok {
			return nil, fmt.Errorf("%w: score %d references unknown event %q", ErrInvalidFixture, i, rs.Event)
		}
		ns, err := score.Normalize(rs.Athlete, rs.Score, rs.Tiebreak, def.Workout())
		if err != nil {
			return nil, fmt.Errorf("%w: score %d (%s/%s): %w", ErrInvalidFixture, i, rs.Event, rs.Athlete, err)
		}
		byEvent[rs.Event] = append(byEvent[rs.Event], ns)
	}

	// Later lines supersede earlier ones for the same athlete.
	out := make(leaderboard.Scores, len(byEvent))
	for eventID, list := range byEvent {
		var es eventScores
		for _, ns := range list {
			es.put(ns, 0)
		}
		out[eventID] = es.inputs()
	}
	return out, nil
}

// Load stores the competition and its scores in s.
func (f *Fixture) Load(ctx context.Context, s Store) error {
	if err := s.PutCompetition(ctx, f.Competition); err != nil {
		return err
	}
	for i, rs := range f.Scores {
		def, ok := f.Event(rs.Event)
		if !ok {
			return fmt.Errorf("%w: score %d references unknown event %q", ErrInvalidFixture, i, rs.Event)
		}
		ns, err := score.Normalize(rs.Athlete, rs.Score, rs.Tiebreak, def.Workout())
		if err != nil {
			return fmt.Errorf("%w: score %d: %w", ErrInvalidFixture, i, err)
		}
		err = s.ApplyScore(ctx, model.ScoreEvent{
			SubmissionID:  fmt.Sprintf("fixture-%s-%d", f.ID, i),
			CompetitionID: f.ID,
			EventID:       rs.Event,
			Score:         ns,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// LoadCompetitionFile reads and validates one YAML fixture.
func LoadCompetitionFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", ErrInvalidFixture, path, err)
	}
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidFixture, path, err)
	}
	f.Path = path
	return &f, nil
}

// LoadCompetitionDir reads every .yaml or .yml file in dir, sorted by name.
func LoadCompetitionDir(dir string) ([]*Fixture, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if !e.IsDir() && (ext == ".yaml" || ext == ".yml") {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)

	out := make([]*Fixture, 0, len(names))
	seen := make(map[string]string, len(names))
	for _, name := range names {
		f, err := LoadCompetitionFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[f.ID]; dup {
			return nil, fmt.Errorf("%w: competition %q defined in both %s and %s", ErrInvalidFixture, f.ID, prev, name)
		}
		seen[f.ID] = name
		out = append(out, f)
	}
	return out, nil
}
