package evo

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidConfig = errors.New("invalid optimizer configuration")

// Config holds the optimizer tuning knobs. Ratios are fractions in the
// ranges documented on each field.
type Config struct {
	// TotalPopulationGenerations is the generation count; 0 returns the ranked seed.
	TotalPopulationGenerations int

	// MutationRate is the per-case mutation probability, in [0,1].
	MutationRate float64

	// FinalPopulationSelectionRatio is the final suite fraction, in (0,1].
	FinalPopulationSelectionRatio float64

	// EliteSelectionRatio is the elite fraction, in (0,1].
	EliteSelectionRatio float64

	// OnlookerSelectionRatio is the onlooker breadth and jitter, in [0,1].
	OnlookerSelectionRatio float64

	// ScoutSelectionRatio is the scout breadth, in [0,1].
	ScoutSelectionRatio float64

	EnableOnlookerSelection   bool
	EnableScoutPhase          bool
	EnforceMutationUniqueness bool

	// StagnationThresholdPercentage is the fraction of generations after
	// which scouting may start, in (0,1].
	StagnationThresholdPercentage float64

	// CoolingRate is the annealing decay base, in (0,1].
	CoolingRate float64

	AllowMultipleInvalidInputs bool
	Seed                       int64
	CountMode                  CountMode
}

// DefaultConfig returns the recommended optimizer settings.
func DefaultConfig() Config {
	return Config{
		TotalPopulationGenerations:    20,
		MutationRate:                  0.3,
		FinalPopulationSelectionRatio: 0.5,
		EliteSelectionRatio:           0.5,
		OnlookerSelectionRatio:        0.1,
		ScoutSelectionRatio:           0.3,
		EnableOnlookerSelection:       true,
		EnableScoutPhase:              false,
		EnforceMutationUniqueness:     true,
		StagnationThresholdPercentage: 0.75,
		CoolingRate:                   0.95,
		AllowMultipleInvalidInputs:    false,
		Seed:                          42,
		CountMode:                     CountScaled,
	}
}

func (c Config) Validate() error {
	if c.TotalPopulationGenerations < 0 {
		return fmt.Errorf("%w: total population generations must be >= 0", ErrInvalidConfig)
	}
	checks := []struct {
		name      string
		value     float64
		openBelow bool
	}{
		{"mutation rate", c.MutationRate, false},
		{"final population selection ratio", c.FinalPopulationSelectionRatio, true},
		{"elite selection ratio", c.EliteSelectionRatio, true},
		{"onlooker selection ratio", c.OnlookerSelectionRatio, false},
		{"scout selection ratio", c.ScoutSelectionRatio, false},
		{"stagnation threshold percentage", c.StagnationThresholdPercentage, true},
		{"cooling rate", c.CoolingRate, true},
	}
	for _, check := range checks {
		if math.IsNaN(check.value) || check.value > 1 || check.value < 0 || (check.openBelow && check.value == 0) {
			bound := "[0,1]"
			if check.openBelow {
				bound = "(0,1]"
			}
			return fmt.Errorf("%w: %s must be in %s, got %v", ErrInvalidConfig, check.name, bound, check.value)
		}
	}
	if _, err := ParseCountMode(string(c.CountMode)); err != nil {
		return err
	}
	return nil
}
