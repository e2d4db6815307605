package config_test

import (
	"context"
	"errors"
	"runtime"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"github.com/wodsmith/ranking/internal/config"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.QueueSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.WorkerCount, convey.ShouldEqual, runtime.NumCPU())
			convey.So(cfg.DedupeSize, convey.ShouldEqual, 50_000)
			convey.So(cfg.MaxLeaderboardLimit, convey.ShouldEqual, 1000)
			convey.So(cfg.LogFormat, convey.ShouldEqual, "text")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with invalid values", t, func() {
		mutations := map[string]func(*config.Config){
			"empty addr":     func(c *config.Config) { c.Addr = " " },
			"zero limit":     func(c *config.Config) { c.MaxLeaderboardLimit = 0 },
			"zero queue":     func(c *config.Config) { c.QueueSize = 0 },
			"negative rate":  func(c *config.Config) { c.SubmitRatePerSec = -1 },
			"unknown format": func(c *config.Config) { c.LogFormat = "xml" },
		}

		for name, mutate := range mutations {
			convey.Convey("Then "+name+" should be rejected", func() {
				cfg := config.New(context.Background())
				mutate(cfg)
				err := cfg.Validate()
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
