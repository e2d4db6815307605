package simulate

import "errors"

// Sentinel errors for simulation runs.
var (
	ErrInvalidConfig = errors.New("invalid simulation config")
	ErrNotSettled    = errors.New("standings did not settle")
	ErrMismatch      = errors.New("leaderboard mismatch")
)
