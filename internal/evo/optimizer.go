package evo

import (
	"context"
	"fmt"
	"math/rand"

	"suitegen/internal/model"
	"suitegen/internal/pairwise"
)

// Observer receives run progress. Implementations shared across parallel
// runs must be safe for concurrent use.
type Observer interface {
	ObserveGeneration(diag model.GenerationDiagnostics)
	ObserveRun(result RunResult)
}

type RunResult struct {
	Seed        []model.TestCase
	Final       []model.TestCase
	Diagnostics []model.GenerationDiagnostics
	EliteCount  int
	// Repaired counts members walked down to at most one invalid value
	// before final selection.
	Repaired int
	Config   Config
}

// BestScore is the highest final score, or 0 for an empty result.
func (r RunResult) BestScore() float64 {
	if len(r.Final) == 0 {
		return 0
	}
	return r.Final[0].Score
}

// TotalScore sums the final scores.
func (r RunResult) TotalScore() float64 {
	total := 0.0
	for _, tc := range r.Final {
		total += tc.Score
	}
	return total
}

const repairStepsPerParameter = 16

type Option func(*Optimizer)

func WithObserver(observer Observer) Option {
	return func(o *Optimizer) {
		o.observer = observer
	}
}

func WithMutator(mutator Mutator) Option {
	return func(o *Optimizer) {
		o.mutator = mutator
	}
}

// WithAcceptancePolicy overrides the policy implied by EnforceMutationUniqueness.
func WithAcceptancePolicy(policy AcceptancePolicy) Option {
	return func(o *Optimizer) {
		o.acceptance = policy
	}
}

// Optimizer runs the hybrid artificial bee colony search over a pairwise seed.
// An Optimizer may be reused; every Run owns a fresh evaluator and rng.
type Optimizer struct {
	cfg        Config
	mutator    Mutator
	acceptance AcceptancePolicy
	observer   Observer
}

func NewOptimizer(cfg Config, opts ...Option) (*Optimizer, error) {
	if cfg.CountMode == "" {
		cfg.CountMode = CountScaled
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := &Optimizer{
		cfg:        cfg,
		mutator:    RandomValueMutation{},
		acceptance: AcceptancePolicyFor(cfg.EnforceMutationUniqueness),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.mutator == nil {
		return nil, fmt.Errorf("mutator is required")
	}
	if o.acceptance == nil {
		return nil, fmt.Errorf("acceptance policy is required")
	}
	return o, nil
}

func (o *Optimizer) Config() Config {
	return o.cfg
}

type runState struct {
	cfg        Config
	params     []model.Parameter
	population *Population
	evaluator  *Evaluator
	rng        *rand.Rand
	eliteCount int
}

func (o *Optimizer) Run(ctx context.Context, params []model.Parameter) (RunResult, error) {
	seed, err := pairwise.Generate(params)
	if err != nil {
		return RunResult{}, err
	}

	state := &runState{
		cfg:        o.cfg,
		params:     params,
		population: NewPopulation(seed),
		evaluator:  NewEvaluator(o.cfg.AllowMultipleInvalidInputs),
		rng:        rand.New(rand.NewSource(o.cfg.Seed)),
	}
	state.eliteCount = EliteCount(state.population.Len(), o.cfg.EliteSelectionRatio)

	diagnostics := make([]model.GenerationDiagnostics, 0, o.cfg.TotalPopulationGenerations)
	for gen := 0; gen < o.cfg.TotalPopulationGenerations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}
		diag, err := o.generation(state, gen)
		if err != nil {
			return RunResult{}, err
		}
		diagnostics = append(diagnostics, diag)
		if o.observer != nil {
			o.observer.ObserveGeneration(diag)
		}
	}

	repaired := 0
	if o.cfg.TotalPopulationGenerations > 0 && !o.cfg.AllowMultipleInvalidInputs {
		repaired, err = o.repairInvalid(state)
		if err != nil {
			return RunResult{}, err
		}
	}

	result := RunResult{
		Seed:        cloneCases(seed),
		Final:       finalSelection(state),
		Diagnostics: diagnostics,
		EliteCount:  state.eliteCount,
		Repaired:    repaired,
		Config:      o.cfg,
	}
	if o.observer != nil {
		o.observer.ObserveRun(result)
	}
	return result, nil
}

func (o *Optimizer) generation(state *runState, gen int) (model.GenerationDiagnostics, error) {
	population := state.population
	state.evaluator.EvaluatePopulation(population)
	scored := population.Cases()
	diag := summarizeGeneration(scored, gen)

	elite, err := EliteSelector{}.Select(scored, state.eliteCount)
	if err != nil {
		return model.GenerationDiagnostics{}, err
	}
	isElite := make(map[int]bool, len(elite))
	for _, idx := range elite {
		isElite[idx] = true
	}

	nonElite := make([]string, 0, len(scored))
	inNonElite := make(map[string]bool, len(scored))
	for i, tc := range scored {
		if isElite[i] {
			continue
		}
		fingerprint := tc.Fingerprint()
		nonElite = append(nonElite, fingerprint)
		inNonElite[fingerprint] = true
	}

	if state.cfg.EnableOnlookerSelection {
		limit := OnlookerCount(state.cfg.CountMode, state.cfg, len(scored))
		nonElite, diag.OnlookersAdded, err = addOnlookers(state.rng, scored, state.cfg.OnlookerSelectionRatio, limit, nonElite, inNonElite)
		if err != nil {
			return model.GenerationDiagnostics{}, err
		}
	}

	temperature := Temperature(state.cfg.CoolingRate, gen)
	diag.Temperature = temperature
	for _, fingerprint := range nonElite {
		idx, ok := population.IndexOf(fingerprint)
		if !ok {
			continue
		}
		if state.rng.Float64() >= state.cfg.MutationRate {
			continue
		}
		original := population.At(idx)
		mutated, err := o.mutator.Apply(state.rng, original, state.params)
		if err != nil {
			return model.GenerationDiagnostics{}, err
		}
		diag.MutationsAttempted++
		if mutated.Equal(original) || population.Contains(mutated) {
			diag.MutationsDuplicate++
			continue
		}
		mutatedScore := state.evaluator.Evaluate(mutated, population.Cases())
		if !o.acceptance.Accept(state.rng, original.Score, mutatedScore, temperature) {
			diag.MutationsRejected++
			continue
		}
		mutated.Score = mutatedScore
		population.Replace(idx, mutated)
		diag.MutationsAccepted++
	}

	total := state.cfg.TotalPopulationGenerations
	if state.cfg.EnableScoutPhase && float64(gen) > float64(total)*state.cfg.StagnationThresholdPercentage {
		diag.ScoutPhaseActivated = true
		current := population.Cases()
		weakest := lowestScoring(current, ScoutCount(state.cfg.CountMode, state.cfg, len(current)))
		for _, idx := range weakest {
			fingerprint := current[idx].Fingerprint()
			slot, ok := population.IndexOf(fingerprint)
			if !ok {
				continue
			}
			scout, err := o.mutator.Apply(state.rng, population.At(slot), state.params)
			if err != nil {
				return model.GenerationDiagnostics{}, err
			}
			// Scouts take over the weak member's slot so the population keeps its size.
			if population.Replace(slot, scout) && scout.Fingerprint() != fingerprint {
				diag.ScoutsReplaced++
			}
		}
	}

	return diag, nil
}

// addOnlookers unions the first limit onlooker picks into pool and reports
// how many of them pool did not already hold.
func addOnlookers(rng *rand.Rand, scored []model.TestCase, jitter float64, limit int, pool []string, inPool map[string]bool) ([]string, int, error) {
	ranked, err := OnlookerSelector{Jitter: jitter}.Rank(rng, scored)
	if err != nil {
		return nil, 0, err
	}
	limit = min(limit, len(ranked))
	added := 0
	for _, idx := range ranked[:limit] {
		fingerprint := scored[idx].Fingerprint()
		if inPool[fingerprint] {
			continue
		}
		pool = append(pool, fingerprint)
		inPool[fingerprint] = true
		added++
	}
	return pool, added, nil
}

// repairInvalid walks every member holding more than one invalid value
// towards an eligible case with the run's mutator. A walk step is kept only
// when it does not raise the invalid count, and a walk ends after
// repairStepsPerParameter*len(params) steps. It returns the repaired count.
func (o *Optimizer) repairInvalid(state *runState) (int, error) {
	population := state.population
	steps := repairStepsPerParameter * len(state.params)
	repaired := 0
	for i := 0; i < population.Len(); i++ {
		candidate := population.At(i)
		if candidate.InvalidCount() <= 1 {
			continue
		}
		for step := 0; step < steps; step++ {
			next, err := o.mutator.Apply(state.rng, candidate, state.params)
			if err != nil {
				return repaired, err
			}
			if next.InvalidCount() > candidate.InvalidCount() {
				continue
			}
			candidate = next
			if candidate.InvalidCount() <= 1 && population.Replace(i, candidate) {
				repaired++
				break
			}
		}
	}
	return repaired, nil
}

// finalSelection rescores the population and keeps the top fraction. When
// multiple invalid values are disallowed only eligible members are kept, even
// if that leaves fewer than the final size.
func finalSelection(state *runState) []model.TestCase {
	state.evaluator.EvaluatePopulation(state.population)
	scored := state.population.Cases()
	ranked := rankByScore(scored, true)
	if !state.cfg.AllowMultipleInvalidInputs {
		eligible := ranked[:0]
		for _, idx := range ranked {
			if scored[idx].InvalidCount() <= 1 {
				eligible = append(eligible, idx)
			}
		}
		ranked = eligible
	}
	keep := min(FinalSize(len(scored), state.cfg.FinalPopulationSelectionRatio), len(ranked))
	out := make([]model.TestCase, 0, keep)
	for _, idx := range ranked[:keep] {
		out = append(out, scored[idx].Clone())
	}
	return out
}

func summarizeGeneration(scored []model.TestCase, gen int) model.GenerationDiagnostics {
	diag := model.GenerationDiagnostics{
		Generation:     gen,
		PopulationSize: len(scored),
	}
	if len(scored) == 0 {
		return diag
	}
	total := 0.0
	best, worst := scored[0].Score, scored[0].Score
	fingerprints := make(map[string]struct{}, len(scored))
	for _, tc := range scored {
		total += tc.Score
		best = max(best, tc.Score)
		worst = min(worst, tc.Score)
		fingerprints[tc.Fingerprint()] = struct{}{}
	}
	diag.BestScore = best
	diag.MinScore = worst
	diag.MeanScore = total / float64(len(scored))
	diag.DistinctCases = len(fingerprints)
	return diag
}

func cloneCases(cases []model.TestCase) []model.TestCase {
	out := make([]model.TestCase, len(cases))
	for i, tc := range cases {
		out[i] = tc.Clone()
	}
	return out
}
