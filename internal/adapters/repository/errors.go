package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound            = errors.New("not found")
	ErrCompetitionNotFound = errors.New("competition not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrAthleteNotFound     = errors.New("athlete not found")
	ErrStandingsNotReady   = errors.New("standings not computed yet")
	ErrInvalidLimit        = errors.New("invalid leaderboard limit")
)
