package evo

import (
	"errors"
	"fmt"
	"math/rand"

	"suitegen/internal/model"
)

var ErrShapeMismatch = errors.New("test case does not match parameter list")

// Mutator derives a new case from an existing one without modifying it.
type Mutator interface {
	Name() string
	Apply(rng *rand.Rand, tc model.TestCase, params []model.Parameter) (model.TestCase, error)
}

// RandomValueMutation replaces the value at one uniformly chosen position
// with a uniformly chosen value from that position's domain. It may pick
// the value already there.
type RandomValueMutation struct{}

func (RandomValueMutation) Name() string {
	return "random_value"
}

func (RandomValueMutation) Apply(rng *rand.Rand, tc model.TestCase, params []model.Parameter) (model.TestCase, error) {
	if rng == nil {
		return model.TestCase{}, fmt.Errorf("random source is required")
	}
	if len(tc.Values) != len(params) || len(params) == 0 {
		return model.TestCase{}, fmt.Errorf("%w: values=%d parameters=%d", ErrShapeMismatch, len(tc.Values), len(params))
	}
	position := rng.Intn(len(params))
	domain := params[position].Domain
	if len(domain) == 0 {
		return model.TestCase{}, fmt.Errorf("parameter %s has an empty domain", params[position].Name)
	}

	mutated := tc.Clone()
	mutated.Values[position] = domain[rng.Intn(len(domain))]
	return mutated, nil
}
