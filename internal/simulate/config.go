// Package simulate drives a running ranking service with a synthetic
// competition and checks the published leaderboard against a local
// computation.
package simulate

import (
	"fmt"
	"time"
)

// Config holds configuration for a simulation run.
type Config struct {
	BaseURL       string        // Base URL of the service
	CompetitionID string        // Competition to create; generated when empty
	Athletes      int           // Number of athletes
	Withdrawals   int           // Athletes withdrawn after scoring
	Workers       int           // Concurrent HTTP submitters
	Timeout       time.Duration // HTTP request timeout
	SettleTimeout time.Duration // How long to wait for standings to catch up
	Seed          uint64        // Seed for score generation
	OutputFile    string        // Optional JSON dump of the generated plan
	Verbose       bool
}

// Validate checks the configuration before any request is made.
func (c *Config) Validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Athletes < 1:
		return fmt.Errorf("%w: athletes must be positive", ErrInvalidConfig)
	case c.Withdrawals < 0 || c.Withdrawals > c.Athletes:
		return fmt.Errorf("%w: withdrawals must be between 0 and athletes", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0 || c.SettleTimeout <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats holds run statistics.
type Stats struct {
	ScoresGenerated int
	ScoresAccepted  int
	ScoresDuplicate int
	ScoresRejected  int
	ScoresFailed    int
	Withdrawals     int
	FinalVersion    uint64
	Entries         int
	StartTime       time.Time
	Duration        time.Duration
}
