package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/wodsmith/ranking/pkg/logger"
)

// Run creates a generated competition on the server, submits every score,
// withdraws athletes once the scores have settled and verifies the final
// leaderboard.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log := logger.Get().Named("simulate")

	stats := &Stats{StartTime: time.Now()}
	defer func() { stats.Duration = time.Since(stats.StartTime) }()

	plan := Generate(cfg)
	stats.ScoresGenerated = len(plan.Submissions)
	if cfg.OutputFile != "" {
		if err := writePlan(cfg.OutputFile, &plan); err != nil {
			return stats, err
		}
	}

	c := newClient(cfg.BaseURL, cfg.Timeout)
	put, err := c.putCompetition(ctx, plan.Competition)
	if err != nil {
		return stats, err
	}
	comp := put.Competition
	log.Info(ctx, "competition created",
		logger.String("competition_id", comp.ID),
		logger.Int("athletes", len(comp.Athletes)),
		logger.Int("events", len(comp.Events)),
		logger.Int64("version", int64(put.StandingsVersion)),
	)

	accepted, err := submitAll(ctx, cfg, c, comp.ID, plan.Submissions, stats)
	if err != nil {
		return stats, err
	}
	want := put.StandingsVersion + uint64(len(accepted))
	if _, err := waitForVersion(ctx, c, comp.ID, want, cfg.SettleTimeout); err != nil {
		return stats, err
	}

	var withdrawn []string
	for _, id := range plan.Withdrawn {
		if err := c.withdraw(ctx, comp.ID, id); err != nil {
			log.Warn(ctx, "withdrawal failed", logger.String("athlete_id", id), logger.Error(err))
			continue
		}
		withdrawn = append(withdrawn, id)
	}
	stats.Withdrawals = len(withdrawn)

	lb, err := waitForVersion(ctx, c, comp.ID, want+uint64(len(withdrawn)), cfg.SettleTimeout)
	if err != nil {
		return stats, err
	}
	stats.FinalVersion = lb.Version
	stats.Entries = lb.Total

	expected, err := expectedStandings(ctx, comp, accepted, withdrawn)
	if err != nil {
		return stats, fmt.Errorf("compute expected standings: %w", err)
	}
	if err := compareStandings(lb, &expected); err != nil {
		return stats, err
	}

	log.Info(ctx, "leaderboard verified",
		logger.Int64("version", int64(lb.Version)),
		logger.Int("entries", lb.Total),
	)
	return stats, nil
}

func writePlan(path string, plan *Plan) error {
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}
