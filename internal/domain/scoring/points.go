package scoring

import (
	"math"
	"strconv"
)

// WinnerTakesMoreTable lists points by place (index 0 is first place).
// Places past the end of the table earn 0.
var WinnerTakesMoreTable = [...]int{
	100, 94, 88, 84, 80, 76, 72, 68, 64, 60,
	58, 56, 54, 52, 50, 48, 46, 44, 42, 40,
	38, 36, 34, 32, 30, 28, 26, 24, 22, 20,
	18, 16, 14, 12, 10, 8, 6, 4, 2,
}

// CalculateOnlinePoints awards points equal to the place. Places below 1
// earn 1 point.
func CalculateOnlinePoints(place int) int {
	if place < 1 {
		return 1
	}
	return place
}

// CalculateTraditionalPoints awards first-(place-1)*step, never below 0.
func CalculateTraditionalPoints(place int, cfg TraditionalConfig) int {
	if place < 1 {
		place = 1
	}
	points := cfg.FirstPlacePoints - (place-1)*cfg.Step
	if points < 0 {
		return 0
	}
	return points
}

// WinnerTakesMorePoints looks place up in WinnerTakesMoreTable.
func WinnerTakesMorePoints(place int) int {
	if place < 1 {
		place = 1
	}
	if place > len(WinnerTakesMoreTable) {
		return 0
	}
	return WinnerTakesMoreTable[place-1]
}

// CalculatePScore scores value relative to the best value and the field
// median: the best earns 100 and the median earns 50. When best and median
// coincide the spread is undefined, so athletes matching the best earn 100
// and everyone else 0.
func CalculatePScore(value, best int64, median float64, allowNegatives bool) int {
	spread := math.Abs(float64(best) - median)
	if spread == 0 {
		if value == best {
			return 100
		}
		return 0
	}
	diff := math.Abs(float64(best - value))
	points := int(math.Round(100 - diff/spread*50))
	if points < 0 && !allowNegatives {
		return 0
	}
	return points
}

func (c Config) templatePoints(place int) int {
	if c.CustomTable.BaseTemplate == TemplateWinnerTakesMore {
		return WinnerTakesMorePoints(place)
	}
	return CalculateTraditionalPoints(place, c.Traditional)
}

// CustomPoints returns the override for place, or the template value.
func (c Config) CustomPoints(place int) int {
	if v, ok := c.CustomTable.Overrides[strconv.Itoa(place)]; ok {
		return v
	}
	return c.templatePoints(place)
}

// placePoints maps a rank to points for the rank-based algorithms.
func (c Config) placePoints(place int) int {
	switch c.Algorithm {
	case AlgorithmOnline:
		return CalculateOnlinePoints(place)
	case AlgorithmCustom:
		return c.CustomPoints(place)
	default:
		return CalculateTraditionalPoints(place, c.Traditional)
	}
}
