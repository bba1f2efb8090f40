package evo

import (
	"math"
	"math/rand"
)

const minTemperature = 0.1

// AcceptancePolicy decides whether a mutated case replaces its original.
type AcceptancePolicy interface {
	Name() string
	Accept(rng *rand.Rand, originalScore, mutatedScore, temperature float64) bool
}

// StrictImprovement only accepts mutants that score higher.
type StrictImprovement struct{}

func (StrictImprovement) Name() string {
	return "strict_improvement"
}

func (StrictImprovement) Accept(_ *rand.Rand, originalScore, mutatedScore, _ float64) bool {
	return mutatedScore > originalScore
}

// Annealing accepts improvements outright and worse mutants with probability
// exp(delta/temperature).
type Annealing struct{}

func (Annealing) Name() string {
	return "annealing"
}

func (Annealing) Accept(rng *rand.Rand, originalScore, mutatedScore, temperature float64) bool {
	if mutatedScore > originalScore {
		return true
	}
	if temperature <= 0 {
		temperature = minTemperature
	}
	return rng.Float64() < math.Exp((mutatedScore-originalScore)/temperature)
}

// Temperature is the annealing temperature for a zero-based generation.
func Temperature(coolingRate float64, generation int) float64 {
	return math.Max(minTemperature, math.Pow(coolingRate, float64(generation)))
}

// AcceptancePolicyFor maps the uniqueness switch onto a policy.
func AcceptancePolicyFor(enforceMutationUniqueness bool) AcceptancePolicy {
	if enforceMutationUniqueness {
		return StrictImprovement{}
	}
	return Annealing{}
}
