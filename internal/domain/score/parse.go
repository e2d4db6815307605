package score

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Encoding constants for stored values.
const (
	msPerSecond      = 1000
	secondsPerMinute = 60
	minutesPerHour   = 60
	gramsPerPound    = 453.592

	// RepsPerRound scales rounds in a rounds-reps value so that raw integer
	// comparison orders by rounds first, then reps.
	RepsPerRound = 100_000
)

// Validation messages surfaced to score-entry clients.
const (
	msgRequired      = "Score is required"
	msgCapTimedOnly  = "CAP is only valid for timed workouts"
	msgCapExceeded   = "Time cannot exceed cap of "
	msgTimeFormat    = "Invalid time. Use MM:SS, H:MM:SS or whole seconds"
	msgRoundsReps    = "Invalid rounds+reps. Use R+X or R"
	msgRepsOverflow  = "Reps must be less than 100000"
	msgLoadFormat    = "Invalid load. Enter pounds as a number"
	msgWholeNumber   = "Score must be a whole number"
	msgUnknownScheme = "Unknown scoring scheme"
	msgTooLarge      = "Score is too large"
)

// Result is the outcome of parsing one raw score entry. Callers must check
// IsValid before trusting RawValue or Status.
type Result struct {
	IsValid       bool
	Error         string
	RawValue      *int64
	Status        Status
	NeedsTieBreak bool
}

// ParseOption customizes Parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	timeCapSeconds int
	tiebreak       Scheme
}

// WithTimeCap sets the workout time cap in seconds. Only time-with-cap
// workouts validate against it.
func WithTimeCap(seconds int) ParseOption {
	return func(o *parseOptions) {
		if seconds > 0 {
			o.timeCapSeconds = seconds
		}
	}
}

// WithTiebreakScheme declares that the workout records a secondary
// tiebreak value in the given scheme.
func WithTiebreakScheme(s Scheme) ParseOption {
	return func(o *parseOptions) {
		o.tiebreak = s
	}
}

func (o parseOptions) capMs() int64 {
	secs := int64(o.timeCapSeconds)
	if secs > math.MaxInt64/msPerSecond {
		return math.MaxInt64
	}
	return secs * msPerSecond
}

func (o parseOptions) result(status Status, v *int64) Result {
	return Result{
		IsValid:       true,
		RawValue:      v,
		Status:        status,
		NeedsTieBreak: o.tiebreak != "" && status.Active(),
	}
}

func invalid(msg string) Result {
	return Result{Error: msg}
}

// Parse normalizes a raw score entry for the given scheme.
//
// DNS, DNF and CAP (or C) are recognized case-insensitively. Everything else
// is parsed per scheme: times become milliseconds, loads grams and
// rounds+reps R*100000+X.
func Parse(raw string, scheme Scheme, opts ...ParseOption) Result {
	var o parseOptions
	for _, opt := range opts {
		opt(&o)
	}

	if !scheme.Valid() {
		return invalid(msgUnknownScheme)
	}

	in := strings.TrimSpace(raw)
	if in == "" {
		return invalid(msgRequired)
	}

	switch strings.ToUpper(in) {
	case "DNS":
		return o.result(StatusDNS, nil)
	case "DNF":
		return o.result(StatusDNF, nil)
	case "CAP", "C":
		if !scheme.IsTimed() {
			return invalid(msgCapTimedOnly)
		}
		if scheme == SchemeTimeWithCap && o.timeCapSeconds > 0 {
			v := o.capMs()
			return o.result(StatusCap, &v)
		}
		return o.result(StatusCap, nil)
	}

	value, msg := parseValue(in, scheme)
	if msg != "" {
		return invalid(msg)
	}

	status := StatusScored
	if scheme == SchemeTimeWithCap && o.timeCapSeconds > 0 {
		capMs := o.capMs()
		switch {
		case value > capMs:
			return invalid(msgCapExceeded + FormatTime(capMs))
		case value == capMs:
			// Finishing exactly on the buzzer counts as capped.
			status = StatusCap
		}
	}
	return o.result(status, &value)
}

// ParseTiebreak parses a secondary tiebreak value in the given scheme.
func ParseTiebreak(raw string, scheme Scheme) (int64, error) {
	if !scheme.Valid() {
		return 0, fmt.Errorf("%w: %q", ErrInvalidScheme, scheme)
	}
	in := strings.TrimSpace(raw)
	if in == "" {
		return 0, fmt.Errorf("%w: tiebreak is empty", ErrInvalidScore)
	}
	v, msg := parseValue(in, scheme)
	if msg != "" {
		return 0, fmt.Errorf("%w: %s", ErrInvalidScore, msg)
	}
	return v, nil
}

func parseValue(in string, scheme Scheme) (int64, string) {
	switch scheme {
	case SchemeTime, SchemeTimeWithCap:
		secs, msg := parseClock(in)
		if msg != "" {
			return 0, msg
		}
		if secs > math.MaxInt64/msPerSecond {
			return 0, msgTooLarge
		}
		return secs * msPerSecond, ""
	case SchemeLoad:
		lbs, err := strconv.ParseFloat(in, 64)
		if err != nil || lbs < 0 || math.IsInf(lbs, 0) || math.IsNaN(lbs) {
			return 0, msgLoadFormat
		}
		// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
		grams := math.Round(lbs * gramsPerPound)
		if grams >= math.MaxInt64 {
			return 0, msgTooLarge
		}
		return int64(grams), ""
	case SchemeRoundsReps:
		return parseRoundsReps(in)
	default:
		n, ok := parseUint(in)
		if !ok {
			return 0, msgWholeNumber
		}
		return n, ""
	}
}

// parseClock accepts SS, MM:SS or H:MM:SS and returns whole seconds.
func parseClock(in string) (int64, string) {
	parts := strings.Split(in, ":")
	if len(parts) > 3 {
		return 0, msgTimeFormat
	}
	var secs int64
	for i, p := range parts {
		n, ok := parseUint(p)
		if !ok {
			return 0, msgTimeFormat
		}
		// Only the leading field may exceed 59.
		if i > 0 && n >= secondsPerMinute {
			return 0, msgTimeFormat
		}
		if i > 0 {
			var fits bool
			if secs, fits = mulAdd(secs, secondsPerMinute, n); !fits {
				return 0, msgTooLarge
			}
		} else {
			secs = n
		}
	}
	return secs, ""
}

// mulAdd returns a*m + b for non-negative operands and reports whether the
// result fits in an int64.
func mulAdd(a, m, b int64) (int64, bool) {
	if a > (math.MaxInt64-b)/m {
		return 0, false
	}
	return a*m + b, true
}

func parseRoundsReps(in string) (int64, string) {
	roundsStr, repsStr, hasReps := strings.Cut(in, "+")
	rounds, ok := parseUint(strings.TrimSpace(roundsStr))
	if !ok {
		return 0, msgRoundsReps
	}
	var reps int64
	if hasReps {
		reps, ok = parseUint(strings.TrimSpace(repsStr))
		if !ok {
			return 0, msgRoundsReps
		}
	}
	if reps >= RepsPerRound {
		return 0, msgRepsOverflow
	}
	v, fits := mulAdd(rounds, RepsPerRound, reps)
	if !fits {
		return 0, msgTooLarge
	}
	return v, ""
}

// parseUint parses a plain run of decimal digits. Signs are rejected.
func parseUint(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
