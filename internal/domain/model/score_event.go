package model

import (
	"time"

	"github.com/wodsmith/ranking/internal/domain/score"
)

// ScoreEvent is a normalized score submission travelling from the API to
// the recompute workers.
type ScoreEvent struct {
	SubmissionID  string // unique id for idempotency
	CompetitionID string
	// EventID is empty when the score applies to every event of the
	// competition, as for a withdrawal.
	EventID string
	Score   score.NormalizedScore
	// Sequence orders entries for the same athlete and event: a stored
	// entry is only replaced by one with a sequence at least as high. Zero
	// means unsequenced and always applies.
	Sequence    uint64
	SubmittedAt time.Time
}

// AllEvents reports whether the score applies to every event.
func (e ScoreEvent) AllEvents() bool {
	return e.EventID == ""
}
