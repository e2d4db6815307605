package repository_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wodsmith/ranking/internal/adapters/repository"
	"github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
	"github.com/wodsmith/ranking/internal/domain/types"
	"github.com/wodsmith/ranking/pkg/metrics"
)

func competition() model.Competition {
	return model.Competition{
		ID: "comp-1",
		Events: []model.EventDefinition{
			{ID: "e1", Scheme: score.SchemeReps},
			{ID: "e2", Scheme: score.SchemeTime},
		},
	}
}

func reps(athlete string, v int64) score.NormalizedScore {
	return score.NormalizedScore{AthleteID: athlete, Value: v, HasValue: true, Status: score.StatusScored}
}

func TestMemoryStore_Competitions(t *testing.T) {
	Convey("Given an empty MemoryStore", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()

		Convey("When a competition is stored", func() {
			So(store.PutCompetition(ctx, competition()), ShouldBeNil)

			Convey("Then it is returned with scoring defaults", func() {
				got, err := store.Competition(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(got.Events, ShouldHaveLength, 2)
				So(got.Scoring.Algorithm, ShouldEqual, scoring.AlgorithmTraditional)
				So(store.Count(ctx), ShouldEqual, 1)
			})
		})

		Convey("When an invalid competition is stored", func() {
			err := store.PutCompetition(ctx, model.Competition{})
			So(errors.Is(err, model.ErrInvalidCompetition), ShouldBeTrue)
			So(store.Count(ctx), ShouldEqual, 0)
		})

		Convey("When an unknown competition is read", func() {
			_, err := store.Competition(ctx, "nope")
			So(errors.Is(err, repository.ErrCompetitionNotFound), ShouldBeTrue)
			_, err = store.Scores(ctx, "nope")
			So(errors.Is(err, repository.ErrCompetitionNotFound), ShouldBeTrue)
		})
	})
}

func TestMemoryStore_Scores(t *testing.T) {
	Convey("Given a stored competition", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		So(store.PutCompetition(ctx, competition()), ShouldBeNil)

		Convey("When scores are applied and an athlete re-enters", func() {
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", 10)}), ShouldBeNil)
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("b", 12)}), ShouldBeNil)
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", 15)}), ShouldBeNil)

			Convey("Then the later score supersedes and entry order is kept", func() {
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(scores["e1"], ShouldHaveLength, 2)
				So(scores["e1"][0].UserID, ShouldEqual, "a")
				So(scores["e1"][0].Value, ShouldEqual, 15)
				So(scores["e1"][1].UserID, ShouldEqual, "b")
			})
		})

		Convey("When sequenced entries arrive out of order", func() {
			apply := func(v int64, seq uint64) {
				So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", v), Sequence: seq}), ShouldBeNil)
			}
			apply(30, 3)
			apply(10, 1)
			apply(20, 2)

			Convey("Then the highest sequence is kept", func() {
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(scores["e1"][0].Value, ShouldEqual, 30)
			})

			Convey("Then an unsequenced entry still applies", func() {
				apply(5, 0)
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(scores["e1"][0].Value, ShouldEqual, 5)
			})
		})

		Convey("When a withdrawal is sequenced before a late score", func() {
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", Score: score.Withdrawn("a"), Sequence: 9}), ShouldBeNil)
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", 40), Sequence: 8}), ShouldBeNil)

			Convey("Then the withdrawal stands", func() {
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(scores["e1"][0].Status, ShouldEqual, score.StatusWithdrawn)
			})
		})

		Convey("When a withdrawal is applied to all events", func() {
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", Score: score.Withdrawn("a")}), ShouldBeNil)

			Convey("Then every event records it", func() {
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(scores["e1"][0].Status, ShouldEqual, score.StatusWithdrawn)
				So(scores["e2"][0].Status, ShouldEqual, score.StatusWithdrawn)
			})
		})

		Convey("When a score targets an unknown event", func() {
			err := store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e9", Score: reps("a", 1)})
			So(errors.Is(err, repository.ErrEventNotFound), ShouldBeTrue)
		})

		Convey("When the competition drops an event", func() {
			So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e2", Score: reps("a", 1)}), ShouldBeNil)
			c := competition()
			c.Events = c.Events[:1]
			So(store.PutCompetition(ctx, c), ShouldBeNil)

			Convey("Then its scores are dropped too", func() {
				scores, err := store.Scores(ctx, "comp-1")
				So(err, ShouldBeNil)
				_, ok := scores["e2"]
				So(ok, ShouldBeFalse)
			})
		})
	})
}

func TestMemoryStore_Standings(t *testing.T) {
	Convey("Given a stored competition without standings", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx)
		defer store.Close()
		So(store.PutCompetition(ctx, competition()), ShouldBeNil)

		_, err := store.Standings(ctx, "comp-1")
		So(errors.Is(err, repository.ErrStandingsNotReady), ShouldBeTrue)

		Convey("When standings are published twice", func() {
			s := types.Standings{CompetitionID: "comp-1", Entries: []types.StandingEntry{
				{Rank: 1, AthleteID: "a"}, {Rank: 2, AthleteID: "b"}, {Rank: 3, AthleteID: "c"},
			}}
			first, err := store.PublishStandings(ctx, s)
			So(err, ShouldBeNil)
			second, err := store.PublishStandings(ctx, s)
			So(err, ShouldBeNil)

			Convey("Then versions increase", func() {
				So(first.Version, ShouldEqual, 1)
				So(second.Version, ShouldEqual, 2)
				got, err := store.Standings(ctx, "comp-1")
				So(err, ShouldBeNil)
				So(got.Version, ShouldEqual, 2)
			})

			Convey("Then top entries and single ranks are served", func() {
				top, err := store.TopN(ctx, "comp-1", 2)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)

				_, err = store.TopN(ctx, "comp-1", 0)
				So(errors.Is(err, repository.ErrInvalidLimit), ShouldBeTrue)

				e, err := store.Rank(ctx, "comp-1", "c")
				So(err, ShouldBeNil)
				So(e.Rank, ShouldEqual, 3)

				_, err = store.Rank(ctx, "comp-1", "z")
				So(errors.Is(err, repository.ErrAthleteNotFound), ShouldBeTrue)
			})
		})

		Convey("When readers and writers race", func() {
			var wg sync.WaitGroup
			for range 8 {
				wg.Add(2)
				go func() {
					defer wg.Done()
					_, _ = store.PublishStandings(ctx, types.Standings{CompetitionID: "comp-1"})
				}()
				go func() {
					defer wg.Done()
					_ = store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", 1)})
					_, _ = store.Scores(ctx, "comp-1")
				}()
			}
			wg.Wait()

			got, err := store.Standings(ctx, "comp-1")
			So(err, ShouldBeNil)
			So(got.Version, ShouldEqual, 8)
		})
	})
}

func gaugeValue(suffix string) float64 {
	families, err := metrics.GetRegistry().Gather()
	if err != nil {
		return -1
	}
	for _, f := range families {
		if strings.HasSuffix(f.GetName(), suffix) && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	return -1
}

func TestMemoryStore_MetricsUpdater(t *testing.T) {
	Convey("Given a MemoryStore with a fast metrics updater", t, func() {
		ctx := context.Background()
		store := repository.NewMemoryStore(ctx, repository.WithMetricsUpdateInterval(10*time.Millisecond))
		defer store.Close()

		So(store.PutCompetition(ctx, competition()), ShouldBeNil)
		So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("a", 10)}), ShouldBeNil)
		So(store.ApplyScore(ctx, model.ScoreEvent{CompetitionID: "comp-1", EventID: "e1", Score: reps("b", 12)}), ShouldBeNil)

		Convey("Then the size gauges catch up", func() {
			deadline := time.Now().Add(time.Second)
			for gaugeValue("scores_stored") != 2 && time.Now().Before(deadline) {
				time.Sleep(10 * time.Millisecond)
			}
			So(gaugeValue("scores_stored"), ShouldEqual, 2)
			So(gaugeValue("competitions"), ShouldEqual, 1)
		})
	})
}
