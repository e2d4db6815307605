package model_test

import (
	"errors"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	model "github.com/wodsmith/ranking/internal/domain/model"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/domain/scoring"
)

func validCompetition() model.Competition {
	return model.Competition{
		ID: "open-2026",
		Events: []model.EventDefinition{
			{ID: "e1", Scheme: score.SchemeTimeWithCap, TimeCapSeconds: 600},
			{ID: "e2", Scheme: score.SchemeLoad},
		},
	}
}

func TestCompetition(t *testing.T) {
	convey.Convey("Given a Competition", t, func() {
		convey.Convey("When it is valid", func() {
			c := validCompetition()
			err := c.Validate()

			convey.Convey("Then scoring defaults are filled in", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(c.Scoring.Algorithm, convey.ShouldEqual, scoring.AlgorithmTraditional)
				convey.So(c.Scoring.StatusHandling.Withdrawn, convey.ShouldEqual, scoring.PolicyExclude)
			})

			convey.Convey("Then events are found by id", func() {
				e, ok := c.Event("e1")
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(e.Workout(), convey.ShouldResemble, score.Workout{Scheme: score.SchemeTimeWithCap, TimeCapSeconds: 600})
				_, ok = c.Event("nope")
				convey.So(ok, convey.ShouldBeFalse)
			})
		})

		convey.Convey("When it is malformed", func() {
			cases := map[string]func(c *model.Competition){
				"missing id":      func(c *model.Competition) { c.ID = " " },
				"duplicate event": func(c *model.Competition) { c.Events[1].ID = "e1" },
				"unknown scheme":  func(c *model.Competition) { c.Events[0].Scheme = "distance" },
				"negative cap":    func(c *model.Competition) { c.Events[0].TimeCapSeconds = -1 },
				"foreign head-to-head event": func(c *model.Competition) {
					c.Scoring.Tiebreaker = scoring.TiebreakerConfig{
						Primary:           scoring.TiebreakHeadToHead,
						HeadToHeadEventID: "e9",
					}
				},
			}
			for name, mutate := range cases {
				convey.Convey("Then validation rejects "+name, func() {
					c := validCompetition()
					mutate(&c)
					convey.So(errors.Is(c.Validate(), model.ErrInvalidCompetition), convey.ShouldBeTrue)
				})
			}
		})

		convey.Convey("When head-to-head has no event", func() {
			c := validCompetition()
			c.Scoring.Tiebreaker.Primary = scoring.TiebreakHeadToHead
			err := c.Validate()
			convey.So(errors.Is(err, scoring.ErrHeadToHeadEventRequired), convey.ShouldBeTrue)
		})
	})

	convey.Convey("Given a withdrawal ScoreEvent", t, func() {
		ev := model.ScoreEvent{CompetitionID: "c", Score: score.Withdrawn("a1")}
		convey.So(ev.AllEvents(), convey.ShouldBeTrue)
		convey.So(ev.Score.Status, convey.ShouldEqual, score.StatusWithdrawn)
	})
}
