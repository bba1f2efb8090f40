package evo

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"suitegen/internal/model"
)

// Explore runs one independent optimization per seed, at most workers at a
// time (workers <= 0 means unbounded). Results are returned in seed order.
func Explore(ctx context.Context, cfg Config, params []model.Parameter, seeds []int64, workers int, opts ...Option) ([]RunResult, error) {
	if len(seeds) == 0 {
		return nil, fmt.Errorf("at least one seed is required")
	}

	results := make([]RunResult, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, seed := range seeds {
		i, seed := i, seed
		g.Go(func() error {
			runCfg := cfg
			runCfg.Seed = seed
			optimizer, err := NewOptimizer(runCfg, opts...)
			if err != nil {
				return err
			}
			result, err := optimizer.Run(gctx, params)
			if err != nil {
				return fmt.Errorf("seed %d: %w", seed, err)
			}
			results[i] = result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// BestResult returns the index of the result with the highest total final
// score. Ties go to the earliest result.
func BestResult(results []RunResult) int {
	best := -1
	for i, result := range results {
		if best < 0 || result.TotalScore() > results[best].TotalScore() {
			best = i
		}
	}
	return best
}
