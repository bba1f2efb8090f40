package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"suitegen/internal/model"
)

// EliteSelector picks the highest-scoring members. Ties keep population order.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

// Select returns the population indices of the top count members.
func (EliteSelector) Select(cases []model.TestCase, count int) ([]int, error) {
	if count <= 0 || count > len(cases) {
		return nil, fmt.Errorf("invalid elite count: %d", count)
	}
	ranked := rankByScore(cases, true)
	return ranked[:count], nil
}

// OnlookerSelector ranks members by fitness share plus a random jitter scaled
// by Jitter, so strong cases are favored while weaker ones keep a chance.
type OnlookerSelector struct {
	Jitter float64
}

func (OnlookerSelector) Name() string {
	return "onlooker"
}

// Rank orders every population index by onlooker preference. One random draw
// is consumed per member, in population order.
func (s OnlookerSelector) Rank(rng *rand.Rand, cases []model.TestCase) ([]int, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(cases) == 0 {
		return nil, nil
	}

	shares := fitnessShares(cases)
	keys := make([]float64, len(cases))
	for i := range cases {
		keys[i] = shares[i] + rng.Float64()*s.Jitter
	}

	order := make([]int, len(cases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return keys[order[a]] > keys[order[b]]
	})
	return order, nil
}

// fitnessShares normalizes scores to shares of the total. Non-positive
// scores are shifted up first so every share is positive.
func fitnessShares(cases []model.TestCase) []float64 {
	minScore := cases[0].Score
	for _, tc := range cases[1:] {
		if tc.Score < minScore {
			minScore = tc.Score
		}
	}
	shift := 0.0
	if minScore <= 0 {
		shift = -minScore + 1e-9
	}

	total := 0.0
	for _, tc := range cases {
		total += tc.Score + shift
	}
	shares := make([]float64, len(cases))
	for i, tc := range cases {
		if total <= 0 {
			shares[i] = 1 / float64(len(cases))
			continue
		}
		shares[i] = (tc.Score + shift) / total
	}
	return shares
}

// lowestScoring returns the population indices of the count weakest members.
func lowestScoring(cases []model.TestCase, count int) []int {
	if count <= 0 {
		return nil
	}
	ranked := rankByScore(cases, false)
	if count > len(ranked) {
		count = len(ranked)
	}
	return ranked[:count]
}

func rankByScore(cases []model.TestCase, descending bool) []int {
	order := make([]int, len(cases))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if descending {
			return cases[order[a]].Score > cases[order[b]].Score
		}
		return cases[order[a]].Score < cases[order[b]].Score
	})
	return order
}
