// Package repository stores competitions, their scores and the published
// standings.
package repository

import (
	"context"

	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/types"
)

// Store provides access to competition state. Implementations are safe for
// concurrent use; callers serialize write-then-recompute sequences per
// competition themselves.
type Store interface {
	// PutCompetition creates or replaces a competition definition. Scores of
	// events that no longer exist are dropped.
	PutCompetition(ctx context.Context, c model.Competition) error
	// Competition returns a stored competition or ErrCompetitionNotFound.
	Competition(ctx context.Context, id string) (model.Competition, error)
	// Count returns the number of stored competitions.
	Count(ctx context.Context) int

	// ApplyScore records a score, superseding any earlier score of the same
	// athlete in the same event.
	ApplyScore(ctx context.Context, e model.ScoreEvent) error
	// Scores returns a frozen copy of every score of a competition.
	Scores(ctx context.Context, competitionID string) (leaderboard.Scores, error)

	// PublishStandings stores s as the current standings, stamping the next
	// version, and returns the stored value.
	PublishStandings(ctx context.Context, s types.Standings) (types.Standings, error)
	// Standings returns the latest published standings.
	Standings(ctx context.Context, competitionID string) (*types.Standings, error)
	// TopN returns the first n standing entries.
	TopN(ctx context.Context, competitionID string, n int) ([]types.StandingEntry, error)
	// Rank returns the standing of one athlete.
	Rank(ctx context.Context, competitionID, athleteID string) (types.StandingEntry, error)
}
