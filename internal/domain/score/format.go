package score

import (
	"fmt"
	"math"
	"strconv"
)

// FormatTime renders milliseconds as M:SS, or H:MM:SS from one hour up.
// Sub-second remainders are truncated.
func FormatTime(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / msPerSecond
	h := total / (secondsPerMinute * minutesPerHour)
	m := total / secondsPerMinute % minutesPerHour
	s := total % secondsPerMinute
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// Format renders a stored value in the unit an athlete would enter it.
func Format(value int64, scheme Scheme) string {
	switch scheme {
	case SchemeTime, SchemeTimeWithCap:
		return FormatTime(value)
	case SchemeLoad:
		lbs := math.Round(float64(value)/gramsPerPound*10) / 10
		return strconv.FormatFloat(lbs, 'f', -1, 64)
	case SchemeRoundsReps:
		rounds, reps := value/RepsPerRound, value%RepsPerRound
		if reps == 0 {
			return strconv.FormatInt(rounds, 10)
		}
		return strconv.FormatInt(rounds, 10) + "+" + strconv.FormatInt(reps, 10)
	default:
		return strconv.FormatInt(value, 10)
	}
}
