package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/wodsmith/ranking/internal/simulate"
	"github.com/wodsmith/ranking/pkg/logger"

	"github.com/urfave/cli/v2"
)

const (
	defaultAthletes      = 200
	defaultWithdrawals   = 5
	defaultWorkers       = 2 // multiplier for runtime.NumCPU()
	defaultTimeout       = 30 * time.Second
	defaultSettleTimeout = time.Minute
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "simulation failed:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "simulate",
		Usage: "drive a ranking service with a synthetic competition and verify its leaderboard",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "url", Value: "http://localhost:9080", Usage: "base URL of the service"},
			&cli.StringFlag{Name: "competition", Usage: "competition id (generated when empty)"},
			&cli.IntFlag{Name: "athletes", Value: defaultAthletes, Usage: "number of athletes"},
			&cli.IntFlag{Name: "withdrawals", Value: defaultWithdrawals, Usage: "athletes withdrawn after scoring"},
			&cli.IntFlag{Name: "workers", Value: runtime.NumCPU() * defaultWorkers, Usage: "concurrent submitters"},
			&cli.DurationFlag{Name: "timeout", Value: defaultTimeout, Usage: "HTTP request timeout"},
			&cli.DurationFlag{Name: "settle-timeout", Value: defaultSettleTimeout, Usage: "how long to wait for standings to catch up"},
			&cli.Uint64Flag{Name: "seed", Value: uint64(time.Now().UnixNano()), Usage: "score generator seed"},
			&cli.StringFlag{Name: "output", Usage: "write the generated plan as JSON to this file"},
			&cli.BoolFlag{Name: "verbose", Usage: "log rejected submissions"},
		},
		Action: func(c *cli.Context) error {
			if err := logger.Init(); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			if c.Bool("verbose") {
				_ = logger.SetLevelString("debug")
			}

			stats, err := simulate.Run(c.Context, configFromFlags(c))
			if stats != nil {
				printStats(c, stats)
			}
			return err
		},
	}
}

func configFromFlags(c *cli.Context) *simulate.Config {
	return &simulate.Config{
		BaseURL:       c.String("url"),
		CompetitionID: c.String("competition"),
		Athletes:      c.Int("athletes"),
		Withdrawals:   c.Int("withdrawals"),
		Workers:       c.Int("workers"),
		Timeout:       c.Duration("timeout"),
		SettleTimeout: c.Duration("settle-timeout"),
		Seed:          c.Uint64("seed"),
		OutputFile:    c.String("output"),
		Verbose:       c.Bool("verbose"),
	}
}

func printStats(c *cli.Context, s *simulate.Stats) {
	fmt.Fprintf(c.App.Writer, `Simulation summary
   Scores generated: %d
   Accepted:         %d
   Duplicate:        %d
   Rejected:         %d
   Failed:           %d
   Withdrawals:      %d
   Final version:    %d
   Entries:          %d
   Duration:         %s
`, s.ScoresGenerated, s.ScoresAccepted, s.ScoresDuplicate, s.ScoresRejected, s.ScoresFailed,
		s.Withdrawals, s.FinalVersion, s.Entries, s.Duration.Round(time.Millisecond))
}
