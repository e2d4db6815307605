package simulate_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wodsmith/ranking/internal/adapters/http/api"
	service "github.com/wodsmith/ranking/internal/app"
	"github.com/wodsmith/ranking/internal/domain/score"
	"github.com/wodsmith/ranking/internal/simulate"
)

func testConfig(baseURL string) *simulate.Config {
	return &simulate.Config{
		BaseURL:       baseURL,
		CompetitionID: "sim-test",
		Athletes:      20,
		Withdrawals:   3,
		Workers:       4,
		Timeout:       5 * time.Second,
		SettleTimeout: 10 * time.Second,
		Seed:          42,
	}
}

func TestConfig_Validate(t *testing.T) {
	Convey("Given simulation configs", t, func() {
		Convey("Then a complete config is valid", func() {
			So(testConfig("http://localhost:9080").Validate(), ShouldBeNil)
		})

		Convey("Then incomplete configs are rejected", func() {
			cases := map[string]func(c *simulate.Config){
				"no base url":      func(c *simulate.Config) { c.BaseURL = "" },
				"no athletes":      func(c *simulate.Config) { c.Athletes = 0 },
				"too many to drop": func(c *simulate.Config) { c.Withdrawals = 21 },
				"no workers":       func(c *simulate.Config) { c.Workers = 0 },
				"no settle time":   func(c *simulate.Config) { c.SettleTimeout = 0 },
			}
			for name, mutate := range cases {
				Convey(name, func() {
					cfg := testConfig("http://localhost:9080")
					mutate(cfg)
					So(errors.Is(cfg.Validate(), simulate.ErrInvalidConfig), ShouldBeTrue)
				})
			}
		})
	})
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := testConfig("http://localhost:9080")
		plan := simulate.Generate(cfg)

		Convey("Then every athlete has one entry per event", func() {
			So(plan.Competition.ID, ShouldEqual, "sim-test")
			So(plan.Competition.Athletes, ShouldHaveLength, 20)
			So(plan.Submissions, ShouldHaveLength, 20*len(plan.Competition.Events))
			So(plan.Withdrawn, ShouldHaveLength, 3)
		})

		Convey("Then every entry parses for its event", func() {
			c := plan.Competition
			So(c.Validate(), ShouldBeNil)
			for _, sub := range plan.Submissions {
				def, ok := c.Event(sub.EventID)
				So(ok, ShouldBeTrue)
				_, err := score.Normalize(sub.AthleteID, sub.Score, sub.Tiebreak, def.Workout())
				So(err, ShouldBeNil)
			}
		})

		Convey("Then the same seed yields the same scores", func() {
			again := simulate.Generate(cfg)
			So(again.Submissions, ShouldHaveLength, len(plan.Submissions))
			for i := range plan.Submissions {
				So(again.Submissions[i].EventID, ShouldEqual, plan.Submissions[i].EventID)
				So(again.Submissions[i].Score, ShouldEqual, plan.Submissions[i].Score)
				So(again.Submissions[i].Tiebreak, ShouldEqual, plan.Submissions[i].Tiebreak)
			}
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given a ranking server", t, func() {
		ctx := context.Background()
		svc := service.New(service.WithWorkerCount(2))
		So(svc.Start(ctx), ShouldBeNil)
		defer svc.Stop()
		srv := httptest.NewServer(api.NewServer(svc).Handler(ctx))
		defer srv.Close()

		Convey("When a simulation runs against it", func() {
			stats, err := simulate.Run(ctx, testConfig(srv.URL))

			Convey("Then the published leaderboard matches the local computation", func() {
				So(err, ShouldBeNil)
				So(stats.ScoresGenerated, ShouldEqual, 80)
				So(stats.ScoresAccepted, ShouldEqual, 80)
				So(stats.ScoresFailed, ShouldEqual, 0)
				So(stats.Withdrawals, ShouldEqual, 3)
				So(stats.FinalVersion, ShouldEqual, uint64(1+80+3))
				So(stats.Entries, ShouldEqual, 17)
			})
		})

		Convey("When the server is unreachable", func() {
			cfg := testConfig("http://127.0.0.1:1")
			cfg.Timeout = 200 * time.Millisecond
			_, err := simulate.Run(ctx, cfg)

			Convey("Then the run fails before submitting", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}
