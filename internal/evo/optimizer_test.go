package evo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"suitegen/internal/model"
	"suitegen/internal/pairwise"
)

func runOptimizer(t *testing.T, cfg Config, params []model.Parameter, opts ...Option) RunResult {
	t.Helper()
	optimizer, err := NewOptimizer(cfg, opts...)
	require.NoError(t, err)
	result, err := optimizer.Run(context.Background(), params)
	require.NoError(t, err)
	return result
}

func requireWellFormed(t *testing.T, params []model.Parameter, cases []model.TestCase) {
	t.Helper()
	seen := map[string]struct{}{}
	for _, tc := range cases {
		require.Len(t, tc.Values, len(params))
		for pos, value := range tc.Values {
			assert.Contains(t, params[pos].Domain, value)
		}
		fingerprint := tc.Fingerprint()
		_, dup := seen[fingerprint]
		require.False(t, dup, "duplicate case %v", tc.Values)
		seen[fingerprint] = struct{}{}
	}
}

func requireDistinctGenerations(t *testing.T, result RunResult) {
	t.Helper()
	for _, diag := range result.Diagnostics {
		assert.Equal(t, diag.PopulationSize, diag.DistinctCases, "generation %d", diag.Generation)
	}
}

func eligibleCount(cases []model.TestCase) int {
	count := 0
	for _, tc := range cases {
		if tc.InvalidCount() <= 1 {
			count++
		}
	}
	return count
}

func TestOptimizerTextPhoneScenario(t *testing.T) {
	params := textPhoneParams()
	cfg := testConfig()
	cfg.AllowMultipleInvalidInputs = false
	cfg.EliteSelectionRatio = 0.4
	cfg.FinalPopulationSelectionRatio = 0.5
	cfg.TotalPopulationGenerations = 20

	result := runOptimizer(t, cfg, params)

	require.NotEmpty(t, result.Final)
	assert.LessOrEqual(t, len(result.Final), len(result.Seed))
	assert.Len(t, result.Final, FinalSize(len(result.Seed), 0.5))
	requireWellFormed(t, params, result.Final)
	for _, tc := range result.Final {
		assert.LessOrEqual(t, tc.InvalidCount(), 1)
		assert.False(t, tc.Values[0].Value == "Invalid1" && tc.Values[1].Value == "000000")
	}
}

func TestOptimizerZeroGenerationsReturnsRankedSeed(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.TotalPopulationGenerations = 0

	result := runOptimizer(t, cfg, params)

	seed, err := pairwise.Generate(params)
	require.NoError(t, err)
	population := NewPopulation(seed)
	NewEvaluator(cfg.AllowMultipleInvalidInputs).EvaluatePopulation(population)
	var scored []model.TestCase
	for _, tc := range population.Cases() {
		if tc.InvalidCount() <= 1 {
			scored = append(scored, tc)
		}
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	expected := scored[:min(len(scored), FinalSize(len(seed), cfg.FinalPopulationSelectionRatio))]

	require.Len(t, result.Final, len(expected))
	for i := range expected {
		assert.True(t, expected[i].Equal(result.Final[i]), "position %d", i)
		assert.Equal(t, expected[i].Score, result.Final[i].Score)
	}
	assert.Empty(t, result.Diagnostics)
	assert.Zero(t, result.Repaired)
}

func TestOptimizerZeroMutationRateLeavesSeedUntouched(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.MutationRate = 0
	cfg.EnableScoutPhase = false
	cfg.AllowMultipleInvalidInputs = true

	frozen := runOptimizer(t, cfg, params)
	cfg.TotalPopulationGenerations = 0
	seedOnly := runOptimizer(t, cfg, params)

	assert.Equal(t, seedOnly.Final, frozen.Final)
	for _, diag := range frozen.Diagnostics {
		assert.Zero(t, diag.MutationsAttempted)
	}
}

func TestOptimizerIsDeterministicForSeed(t *testing.T) {
	params := mixedParams(5)
	cfg := testConfig()
	cfg.EnforceMutationUniqueness = false
	cfg.EnableScoutPhase = true
	cfg.MutationRate = 0.8

	first := runOptimizer(t, cfg, params)
	second := runOptimizer(t, cfg, params)
	assert.Equal(t, first.Final, second.Final)
	assert.Equal(t, first.Diagnostics, second.Diagnostics)
	requireDistinctGenerations(t, first)

	optimizer, err := NewOptimizer(cfg)
	require.NoError(t, err)
	again, err := optimizer.Run(context.Background(), params)
	require.NoError(t, err)
	reused, err := optimizer.Run(context.Background(), params)
	require.NoError(t, err)
	assert.Equal(t, again.Final, reused.Final, "reusing an optimizer must not leak state between runs")
}

func TestOptimizerFinalSizeInvariant(t *testing.T) {
	params := mixedParams(4)
	for _, ratio := range []float64{0.01, 0.25, 0.5, 0.9, 1} {
		cfg := testConfig()
		cfg.FinalPopulationSelectionRatio = ratio
		cfg.AllowMultipleInvalidInputs = true
		cfg.EnableScoutPhase = true
		cfg.StagnationThresholdPercentage = 0.5

		result := runOptimizer(t, cfg, params)
		assert.Len(t, result.Final, FinalSize(len(result.Seed), ratio), "ratio %v", ratio)
		requireWellFormed(t, params, result.Final)
	}
}

func TestOptimizerNeverKeepsMultipleInvalidWhenDisallowed(t *testing.T) {
	params := mixedParams(5)
	annealing := DefaultConfig()
	annealing.EnforceMutationUniqueness = false
	annealing.MutationRate = 1
	for name, base := range map[string]Config{"default": DefaultConfig(), "annealing": annealing} {
		for _, seed := range []int64{1, 7, 42} {
			t.Run(fmt.Sprintf("%s/seed-%d", name, seed), func(t *testing.T) {
				cfg := base
				cfg.Seed = seed

				result := runOptimizer(t, cfg, params)
				require.Greater(t, len(result.Seed)-eligibleCount(result.Seed), len(result.Seed)-FinalSize(len(result.Seed), cfg.FinalPopulationSelectionRatio),
					"seed must hold more multi-invalid cases than final selection can drop")
				assert.Positive(t, result.Repaired)
				assert.Len(t, result.Final, FinalSize(len(result.Seed), cfg.FinalPopulationSelectionRatio))
				for _, tc := range result.Final {
					assert.LessOrEqual(t, tc.InvalidCount(), 1, "case %v", tc.Values)
				}
				requireWellFormed(t, params, result.Final)
				requireDistinctGenerations(t, result)
			})
		}
	}
}

func TestOptimizerShrinksSuiteWhenCasesCannotBeRepaired(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()

	result := runOptimizer(t, cfg, params, WithMutator(noopMutator{}))
	expected := min(eligibleCount(result.Seed), FinalSize(len(result.Seed), cfg.FinalPopulationSelectionRatio))
	assert.Zero(t, result.Repaired)
	assert.Len(t, result.Final, expected)
	for _, tc := range result.Final {
		assert.LessOrEqual(t, tc.InvalidCount(), 1, "case %v", tc.Values)
	}
}

func TestOptimizerScoutPhaseStartsAfterStagnationThreshold(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.TotalPopulationGenerations = 10
	cfg.EnableScoutPhase = true
	cfg.StagnationThresholdPercentage = 0.5
	cfg.ScoutSelectionRatio = 0.3

	result := runOptimizer(t, cfg, params)
	require.Len(t, result.Diagnostics, 10)
	replaced := 0
	for _, diag := range result.Diagnostics {
		assert.Equal(t, diag.Generation > 5, diag.ScoutPhaseActivated, "generation %d", diag.Generation)
		replaced += diag.ScoutsReplaced
		assert.Equal(t, len(result.Seed), diag.PopulationSize)
	}
	// Scouts replace weak members in place, so the population never grows.
	assert.Positive(t, replaced)
	requireWellFormed(t, params, result.Final)
	requireDistinctGenerations(t, result)
}

func TestOptimizerLiteralCountModeNeverScouts(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.CountMode = CountLiteral
	cfg.EnableScoutPhase = true
	cfg.StagnationThresholdPercentage = 0.1

	result := runOptimizer(t, cfg, params)
	for _, diag := range result.Diagnostics {
		assert.Zero(t, diag.ScoutsReplaced)
		assert.LessOrEqual(t, diag.OnlookersAdded, 1)
	}
}

func TestOptimizerOnlookerAdditionsRespectLimit(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.OnlookerSelectionRatio = 0.5

	result := runOptimizer(t, cfg, params)
	limit := OnlookerCount(CountScaled, cfg, len(result.Seed))
	for _, diag := range result.Diagnostics {
		assert.LessOrEqual(t, diag.OnlookersAdded, limit)
	}

	cfg.EnableOnlookerSelection = false
	disabled := runOptimizer(t, cfg, params)
	for _, diag := range disabled.Diagnostics {
		assert.Zero(t, diag.OnlookersAdded)
	}
}

func TestOptimizerMutationRateOneKeepsGenerationsDistinct(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.MutationRate = 1
	cfg.EnableScoutPhase = true
	cfg.StagnationThresholdPercentage = 0.25

	result := runOptimizer(t, cfg, params)
	requireDistinctGenerations(t, result)
	requireWellFormed(t, params, result.Final)
}

func onlookerCases(scores ...float64) []model.TestCase {
	cases := make([]model.TestCase, len(scores))
	for i, score := range scores {
		cases[i] = model.TestCase{Values: []model.TestValue{valid(i), valid("fixed")}, Score: score}
	}
	return cases
}

func nonElitePool(cases []model.TestCase, eliteCount int) ([]string, map[string]bool) {
	pool := make([]string, 0, len(cases))
	inPool := make(map[string]bool, len(cases))
	for _, tc := range cases[eliteCount:] {
		pool = append(pool, tc.Fingerprint())
		inPool[tc.Fingerprint()] = true
	}
	return pool, inPool
}

func TestAddOnlookersLeavesLowShareEliteOutOfPool(t *testing.T) {
	cases := onlookerCases(100, 90, 1, 0.5, 0.4, 0.3)
	lowShareElite := cases[2].Fingerprint()
	for seed := int64(1); seed <= 50; seed++ {
		pool, inPool := nonElitePool(cases, 3)
		pool, added, err := addOnlookers(rand.New(rand.NewSource(seed)), cases, 0.1, 2, pool, inPool)
		require.NoError(t, err)
		assert.Equal(t, 2, added, "seed %d", seed)
		assert.Len(t, pool, 5)
		assert.NotContains(t, pool, lowShareElite, "seed %d", seed)
	}
}

func TestAddOnlookersCountsOnlyNewMembers(t *testing.T) {
	cases := onlookerCases(10, 9.9, 9.8, 9.7)
	counts := map[int]int{}
	for seed := int64(1); seed <= 50; seed++ {
		pool, inPool := nonElitePool(cases, 2)
		pool, added, err := addOnlookers(rand.New(rand.NewSource(seed)), cases, 0.5, 2, pool, inPool)
		require.NoError(t, err)
		require.LessOrEqual(t, added, 2)
		assert.Len(t, pool, 2+added)
		counts[added]++
	}
	assert.Less(t, counts[2], 50, "picks already in the pool must not be replaced by further picks")
	assert.Positive(t, counts[2])
}

type rejectAll struct {
	calls        int
	temperatures []float64
}

func (*rejectAll) Name() string { return "reject_all" }

func (r *rejectAll) Accept(_ *rand.Rand, _, _, temperature float64) bool {
	r.calls++
	r.temperatures = append(r.temperatures, temperature)
	return false
}

func TestOptimizerUsesInjectedAcceptancePolicy(t *testing.T) {
	params := mixedParams(4)
	cfg := testConfig()
	cfg.MutationRate = 1
	policy := &rejectAll{}

	result := runOptimizer(t, cfg, params, WithAcceptancePolicy(policy))

	rejected := 0
	for _, diag := range result.Diagnostics {
		assert.Zero(t, diag.MutationsAccepted)
		assert.Equal(t, diag.MutationsAttempted, diag.MutationsRejected+diag.MutationsDuplicate)
		rejected += diag.MutationsRejected
	}
	assert.Equal(t, policy.calls, rejected)
	requireDistinctGenerations(t, result)
	for _, temperature := range policy.temperatures {
		assert.GreaterOrEqual(t, temperature, 0.1)
	}
}

type recordingObserver struct {
	generations []model.GenerationDiagnostics
	runs        int
}

func (o *recordingObserver) ObserveGeneration(diag model.GenerationDiagnostics) {
	o.generations = append(o.generations, diag)
}

func (o *recordingObserver) ObserveRun(RunResult) {
	o.runs++
}

func TestOptimizerNotifiesObserver(t *testing.T) {
	cfg := testConfig()
	cfg.TotalPopulationGenerations = 4
	observer := &recordingObserver{}

	result := runOptimizer(t, cfg, uniformParams(3, 3, 3), WithObserver(observer))
	assert.Equal(t, result.Diagnostics, observer.generations)
	assert.Equal(t, 1, observer.runs)
}

func TestOptimizerPropagatesSeedArgumentError(t *testing.T) {
	optimizer, err := NewOptimizer(testConfig())
	require.NoError(t, err)

	_, err = optimizer.Run(context.Background(), uniformParams(3))
	require.Error(t, err)
	assert.True(t, errors.Is(err, pairwise.ErrInvalidArgument))
	assert.Contains(t, err.Error(), "Pairwise testing requires at least two parameters.")
}

func TestOptimizerStopsOnCancelledContext(t *testing.T) {
	optimizer, err := NewOptimizer(testConfig())
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = optimizer.Run(ctx, uniformParams(2, 2))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewOptimizerRejectsInvalidConfig(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"mutation rate":     func(c *Config) { c.MutationRate = 1.5 },
		"final ratio zero":  func(c *Config) { c.FinalPopulationSelectionRatio = 0 },
		"elite ratio":       func(c *Config) { c.EliteSelectionRatio = -0.1 },
		"cooling rate":      func(c *Config) { c.CoolingRate = 0 },
		"negative gens":     func(c *Config) { c.TotalPopulationGenerations = -1 },
		"unknown countmode": func(c *Config) { c.CountMode = "cubic" },
		"nan final ratio":   func(c *Config) { c.FinalPopulationSelectionRatio = math.NaN() },
		"nan mutation rate": func(c *Config) { c.MutationRate = math.NaN() },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := testConfig()
			mutate(&cfg)
			_, err := NewOptimizer(cfg)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}
