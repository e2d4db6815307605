package simulate

import (
	"context"
	"fmt"

	"github.com/wodsmith/ranking/internal/adapters/repository"
	"github.com/wodsmith/ranking/internal/domain/leaderboard"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/types"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// expectedStandings replays the accepted submissions and withdrawals through
// a local store and computes the leaderboard the server should publish.
func expectedStandings(ctx context.Context, comp model.Competition, accepted []Submission, withdrawn []string) (types.Standings, error) { //nolint:gocritic // hugeParam
	store := repository.NewMemoryStore(ctx)
	defer store.Close()

	if err := store.PutCompetition(ctx, comp); err != nil {
		return types.Standings{}, err
	}
	comp, err := store.Competition(ctx, comp.ID)
	if err != nil {
		return types.Standings{}, err
	}

	for _, sub := range accepted {
		def, ok := comp.Event(sub.EventID)
		if !ok {
			return types.Standings{}, fmt.Errorf("%w: %s", repository.ErrEventNotFound, sub.EventID)
		}
		ns, err := score.Normalize(sub.AthleteID, sub.Score, sub.Tiebreak, def.Workout())
		if err != nil {
			return types.Standings{}, fmt.Errorf("normalize %s/%s: %w", sub.EventID, sub.AthleteID, err)
		}
		err = store.ApplyScore(ctx, model.ScoreEvent{
			SubmissionID:  sub.SubmissionID,
			CompetitionID: comp.ID,
			EventID:       sub.EventID,
			Score:         ns,
		})
		if err != nil {
			return types.Standings{}, err
		}
	}
	for _, id := range withdrawn {
		err := store.ApplyScore(ctx, model.ScoreEvent{
			SubmissionID:  "withdraw/" + id,
			CompetitionID: comp.ID,
			Score:         score.Withdrawn(id),
		})
		if err != nil {
			return types.Standings{}, err
		}
	}

	scores, err := store.Scores(ctx, comp.ID)
	if err != nil {
		return types.Standings{}, err
	}
	return leaderboard.Compute(ctx, comp, scores)
}

// compareStandings reports the difference between the server's leaderboard
// page and the locally computed standings.
func compareStandings(got leaderboardResponse, want *types.Standings) error {
	if got.Total != len(want.Entries) {
		return fmt.Errorf("%w: server has %d athletes, expected %d", ErrMismatch, got.Total, len(want.Entries))
	}
	if diff := cmp.Diff(want.Top(len(got.Entries)), got.Entries, cmpopts.EquateEmpty()); diff != "" {
		return fmt.Errorf("%w (-want +got):\n%s", ErrMismatch, diff)
	}
	return nil
}
