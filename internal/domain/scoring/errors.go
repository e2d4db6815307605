package scoring

import "errors"

// Sentinel kinds for scoring errors.
var (
	ErrInvalidConfig           = errors.New("invalid scoring config")
	ErrHeadToHeadEventRequired = errors.New("headToHeadEventId is required for head_to_head tiebreaker")
)
