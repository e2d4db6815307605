// Package score normalizes raw score entries into comparable integer values.
package score

// Scheme is the scoring unit of a workout. It decides how raw input is
// parsed and in which direction values compare.
type Scheme string

// Supported workout schemes.
const (
	SchemeTime        Scheme = "time"
	SchemeTimeWithCap Scheme = "time-with-cap"
	SchemePassFail    Scheme = "pass-fail"
	SchemeRoundsReps  Scheme = "rounds-reps"
	SchemeReps        Scheme = "reps"
	SchemeEMOM        Scheme = "emom"
	SchemeLoad        Scheme = "load"
	SchemeCalories    Scheme = "calories"
	SchemeMeters      Scheme = "meters"
	SchemeFeet        Scheme = "feet"
	SchemePoints      Scheme = "points"
)

// Direction is the sort order in which better values come first.
type Direction int

const (
	// Ascending means lower values are better (time).
	Ascending Direction = iota
	// Descending means higher values are better (reps, load, ...).
	Descending
)

var schemeLabels = map[Scheme]string{ //nolint:gochecknoglobals // read-only lookup table
	SchemeTime:        "For Time",
	SchemeTimeWithCap: "For Time (capped)",
	SchemePassFail:    "Pass/Fail",
	SchemeRoundsReps:  "AMRAP (rounds + reps)",
	SchemeReps:        "Reps",
	SchemeEMOM:        "EMOM",
	SchemeLoad:        "Load (lb)",
	SchemeCalories:    "Calories",
	SchemeMeters:      "Meters",
	SchemeFeet:        "Feet",
	SchemePoints:      "Points",
}

// Valid reports whether s is a known scheme.
func (s Scheme) Valid() bool {
	_, ok := schemeLabels[s]
	return ok
}

// Label returns a human readable name for the scheme.
func (s Scheme) Label() string {
	if l, ok := schemeLabels[s]; ok {
		return l
	}
	return string(s)
}

// IsTimed reports whether the scheme records elapsed time.
func (s Scheme) IsTimed() bool {
	return s == SchemeTime || s == SchemeTimeWithCap
}

// Direction returns the order in which better values sort first.
func (s Scheme) Direction() Direction {
	if s.IsTimed() {
		return Ascending
	}
	return Descending
}

// Better reports whether a is strictly better than b under direction d.
func (d Direction) Better(a, b int64) bool {
	if d == Ascending {
		return a < b
	}
	return a > b
}

// Compare orders a before b when a is better. It returns -1, 0 or 1.
func (d Direction) Compare(a, b int64) int {
	switch {
	case a == b:
		return 0
	case d.Better(a, b):
		return -1
	default:
		return 1
	}
}
