package score

import "errors"

// Sentinel kinds for score errors.
var (
	ErrInvalidScore  = errors.New("invalid score")
	ErrInvalidScheme = errors.New("invalid scheme")
)
