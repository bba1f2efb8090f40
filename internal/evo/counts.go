package evo

import (
	"fmt"
	"math"
)

// CountMode selects how onlooker and scout breadth ratios become member counts.
type CountMode string

const (
	// CountScaled multiplies each breadth ratio by the population size.
	CountScaled CountMode = "scaled"
	// CountLiteral multiplies the breadth ratio by the final selection ratio,
	// which yields a count of zero or one for ratios in (0,1].
	CountLiteral CountMode = "literal"
)

func ParseCountMode(raw string) (CountMode, error) {
	switch CountMode(raw) {
	case "", CountScaled:
		return CountScaled, nil
	case CountLiteral:
		return CountLiteral, nil
	default:
		return "", fmt.Errorf("%w: unknown count mode %q", ErrInvalidConfig, raw)
	}
}

// OnlookerCount is the number of extra members the onlooker phase may add,
// never more than the final suite size.
func OnlookerCount(mode CountMode, cfg Config, populationSize int) int {
	var count int
	switch mode {
	case CountLiteral:
		count = int(math.Floor(cfg.FinalPopulationSelectionRatio * cfg.OnlookerSelectionRatio))
	default:
		count = int(math.Floor(cfg.OnlookerSelectionRatio * float64(populationSize)))
	}
	count = max(1, count)
	return min(count, FinalSize(populationSize, cfg.FinalPopulationSelectionRatio))
}

// ScoutCount is the number of weakest members replaced per scout phase.
func ScoutCount(mode CountMode, cfg Config, populationSize int) int {
	switch mode {
	case CountLiteral:
		return int(math.Floor(cfg.FinalPopulationSelectionRatio * cfg.ScoutSelectionRatio))
	default:
		return int(math.Floor(cfg.ScoutSelectionRatio * float64(populationSize)))
	}
}

// EliteCount is max(1, round(size*ratio)), capped at the population size.
func EliteCount(populationSize int, ratio float64) int {
	count := max(1, int(math.Round(float64(populationSize)*ratio)))
	return min(count, max(1, populationSize))
}

// FinalSize is max(1, floor(size*ratio)).
func FinalSize(populationSize int, ratio float64) int {
	return max(1, int(math.Floor(float64(populationSize)*ratio)))
}
