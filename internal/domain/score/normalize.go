package score

import (
	"errors"
	"fmt"
	"strings"
)

// NormalizedScore is the stored form of one athlete's entry for one event.
// It is never mutated; a re-entry produces a new value that supersedes it.
type NormalizedScore struct {
	AthleteID string
	Value     int64
	HasValue  bool
	Status    Status
	// Secondary is the optional tiebreak value, in the tiebreak scheme's unit.
	Secondary *int64
}

// Workout carries the per-event settings needed to normalize an entry.
type Workout struct {
	Scheme         Scheme
	TimeCapSeconds int
	TiebreakScheme Scheme
}

// Options converts the workout settings into Parse options.
func (w Workout) Options() []ParseOption {
	opts := []ParseOption{WithTimeCap(w.TimeCapSeconds)}
	if w.TiebreakScheme != "" {
		opts = append(opts, WithTiebreakScheme(w.TiebreakScheme))
	}
	return opts
}

// Normalize parses a primary entry and an optional tiebreak entry into a
// NormalizedScore. Validation failures are returned wrapped in
// ErrInvalidScore with the client-facing message.
func Normalize(athleteID, raw, tiebreakRaw string, w Workout) (NormalizedScore, error) {
	if strings.TrimSpace(athleteID) == "" {
		return NormalizedScore{}, fmt.Errorf("%w: athlete id is required", ErrInvalidScore)
	}

	res := Parse(raw, w.Scheme, w.Options()...)
	if !res.IsValid {
		return NormalizedScore{}, fmt.Errorf("%w: %s", ErrInvalidScore, res.Error)
	}

	ns := NormalizedScore{AthleteID: athleteID, Status: res.Status}
	if res.RawValue != nil {
		ns.Value = *res.RawValue
		ns.HasValue = true
	}

	if strings.TrimSpace(tiebreakRaw) != "" {
		if w.TiebreakScheme == "" {
			return NormalizedScore{}, fmt.Errorf("%w: workout has no tiebreak", ErrInvalidScore)
		}
		tb, err := ParseTiebreak(tiebreakRaw, w.TiebreakScheme)
		if err != nil {
			return NormalizedScore{}, err
		}
		ns.Secondary = &tb
	}
	return ns, nil
}

// Withdrawn returns the entry recorded for an athlete who left the competition.
func Withdrawn(athleteID string) NormalizedScore {
	return NormalizedScore{AthleteID: athleteID, Status: StatusWithdrawn}
}

// IsInvalid reports whether err is a score validation failure.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidScore)
}
