package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"suitegen/internal/config"
	"suitegen/internal/metrics"
	"suitegen/internal/model"
	"suitegen/pkg/suitegen"
)

// optimizerFlags are the per-run overrides layered over the settings file.
type optimizerFlags struct {
	paramsPath    string
	generations   int
	seed          int64
	mutationRate  float64
	finalRatio    float64
	eliteRatio    float64
	onlookerRatio float64
	scoutRatio    float64
	onlooker      bool
	scout         bool
	annealing     bool
	multiInvalid  bool
	countMode     string
	mutator       string
	jsonOut       bool
	showMetrics   bool
}

func (f *optimizerFlags) bind(cmd *cobra.Command) {
	defaults := config.Default().Optimizer
	flags := cmd.Flags()
	flags.StringVar(&f.paramsPath, "params", "", "parameter domain file (YAML, or JSON by extension)")
	flags.IntVar(&f.generations, "generations", defaults.TotalPopulationGenerations, "generations to run")
	flags.Int64Var(&f.seed, "seed", defaults.Seed, "rng seed")
	flags.Float64Var(&f.mutationRate, "mutation-rate", defaults.MutationRate, "per-case mutation probability")
	flags.Float64Var(&f.finalRatio, "final-ratio", defaults.FinalPopulationSelectionRatio, "fraction of the population kept in the final suite")
	flags.Float64Var(&f.eliteRatio, "elite-ratio", defaults.EliteSelectionRatio, "fraction of the population protected from mutation")
	flags.Float64Var(&f.onlookerRatio, "onlooker-ratio", defaults.OnlookerSelectionRatio, "onlooker breadth and jitter")
	flags.Float64Var(&f.scoutRatio, "scout-ratio", defaults.ScoutSelectionRatio, "scout breadth")
	flags.BoolVar(&f.onlooker, "onlooker", defaults.EnableOnlookerSelection, "enable onlooker selection")
	flags.BoolVar(&f.scout, "scout", defaults.EnableScoutPhase, "enable the scout phase")
	flags.BoolVar(&f.annealing, "annealing", !defaults.EnforceMutationUniqueness, "accept worse mutants with annealing probability")
	flags.BoolVar(&f.multiInvalid, "allow-multiple-invalid", defaults.AllowMultipleInvalidInputs, "do not penalize cases with several invalid values")
	flags.StringVar(&f.countMode, "count-mode", defaults.CountMode, "onlooker/scout count mode: scaled or literal")
	flags.StringVar(&f.mutator, "mutator", defaults.Mutator, "registered mutator name")
	flags.BoolVar(&f.jsonOut, "json", false, "emit JSON")
	flags.BoolVar(&f.showMetrics, "metrics", false, "print a summary of the collected metrics")
	_ = cmd.MarkFlagRequired("params")
}

// apply copies every explicitly set flag onto settings.
func (f *optimizerFlags) apply(cmd *cobra.Command, settings *config.OptimizerSettings) {
	flags := cmd.Flags()
	if flags.Changed("generations") {
		settings.TotalPopulationGenerations = f.generations
	}
	if flags.Changed("seed") {
		settings.Seed = f.seed
	}
	if flags.Changed("mutation-rate") {
		settings.MutationRate = f.mutationRate
	}
	if flags.Changed("final-ratio") {
		settings.FinalPopulationSelectionRatio = f.finalRatio
	}
	if flags.Changed("elite-ratio") {
		settings.EliteSelectionRatio = f.eliteRatio
	}
	if flags.Changed("onlooker-ratio") {
		settings.OnlookerSelectionRatio = f.onlookerRatio
	}
	if flags.Changed("scout-ratio") {
		settings.ScoutSelectionRatio = f.scoutRatio
	}
	if flags.Changed("onlooker") {
		settings.EnableOnlookerSelection = f.onlooker
	}
	if flags.Changed("scout") {
		settings.EnableScoutPhase = f.scout
	}
	if flags.Changed("annealing") {
		settings.EnforceMutationUniqueness = !f.annealing
	}
	if flags.Changed("allow-multiple-invalid") {
		settings.AllowMultipleInvalidInputs = f.multiInvalid
	}
	if flags.Changed("count-mode") {
		settings.CountMode = f.countMode
	}
	if flags.Changed("mutator") {
		settings.Mutator = f.mutator
	}
}

// prepare resolves settings, flag overrides and the parameter file.
func (f *optimizerFlags) prepare(a *app, cmd *cobra.Command) (config.Settings, []model.Parameter, error) {
	settings, err := a.settings(cmd)
	if err != nil {
		return config.Settings{}, nil, err
	}
	f.apply(cmd, &settings.Optimizer)
	if err := settings.Validate(); err != nil {
		return config.Settings{}, nil, err
	}
	params, err := config.LoadParameters(f.paramsPath)
	if err != nil {
		return config.Settings{}, nil, err
	}
	return settings, params, nil
}

func (f *optimizerFlags) registry() *prometheus.Registry {
	if !f.showMetrics {
		return nil
	}
	return prometheus.NewRegistry()
}

func newGenerateCmd(a *app) *cobra.Command {
	f := &optimizerFlags{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Run one optimization and print the final suite",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, params, err := f.prepare(a, cmd)
			if err != nil {
				return err
			}
			reg := f.registry()
			client, err := a.client(cmd.Context(), settings, registerer(reg))
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			summary, err := client.Generate(cmd.Context(), suitegen.GenerateRequest{
				Parameters: params,
				Config:     settings.Optimizer.OptimizerConfig(),
				Mutator:    settings.Optimizer.Mutator,
			})
			if err != nil {
				return err
			}

			if f.jsonOut {
				return writeJSON(a, generateOutput{
					RunID:     summary.RunID,
					SeedSize:  summary.SeedSize,
					BestScore: summary.BestScore,
					Cases:     summary.Final,
				})
			}
			fmt.Fprintln(a.stdout, titleStyle.Render("run "+summary.RunID))
			fmt.Fprintf(a.stdout, "seed cases: %d  final cases: %d  elite: %d  best score: %.2f\n",
				summary.SeedSize, len(summary.Final), summary.EliteCount, summary.BestScore)
			fmt.Fprintln(a.stdout, renderCases(params, summary.Final))
			return printMetrics(a, reg)
		},
	}
	f.bind(cmd)
	return cmd
}

func newExploreCmd(a *app) *cobra.Command {
	f := &optimizerFlags{}
	var (
		runs    int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Run several seeds in parallel and keep the best suite",
		Long: `explore runs one optimization per seed, starting at --seed and counting
up, and persists only the run whose final suite has the highest total score.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if runs <= 0 {
				return errors.New("runs must be > 0")
			}
			settings, params, err := f.prepare(a, cmd)
			if err != nil {
				return err
			}
			seeds := make([]int64, runs)
			for i := range seeds {
				seeds[i] = settings.Optimizer.Seed + int64(i)
			}

			reg := f.registry()
			client, err := a.client(cmd.Context(), settings, registerer(reg))
			if err != nil {
				return err
			}
			defer closeClient(a, client)

			summary, err := client.Explore(cmd.Context(), suitegen.ExploreRequest{
				Parameters: params,
				Config:     settings.Optimizer.OptimizerConfig(),
				Mutator:    settings.Optimizer.Mutator,
				Seeds:      seeds,
				Workers:    workers,
			})
			if err != nil {
				return err
			}

			if f.jsonOut {
				return writeJSON(a, exploreOutput{
					Items:          summary.Items,
					Best:           summary.Best,
					BestRunID:      summary.BestRunID,
					TotalScoreMean: summary.TotalScoreMean,
					TotalScoreStd:  summary.TotalScoreStd,
				})
			}
			fmt.Fprintln(a.stdout, titleStyle.Render(fmt.Sprintf("explored %d seeds", len(summary.Items))))
			fmt.Fprintln(a.stdout, renderExplore(summary.Items, summary.Best))
			fmt.Fprintf(a.stdout, "total score mean: %.2f  std: %.2f\n", summary.TotalScoreMean, summary.TotalScoreStd)
			if summary.BestRunID != "" {
				fmt.Fprintf(a.stdout, "best run: %s\n", summary.BestRunID)
			}
			return printMetrics(a, reg)
		},
	}
	f.bind(cmd)
	cmd.Flags().IntVar(&runs, "runs", 4, "number of seeds to explore")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel runs (0 = unbounded)")
	return cmd
}

type generateOutput struct {
	RunID     string           `json:"run_id"`
	SeedSize  int              `json:"seed_size"`
	BestScore float64          `json:"best_score"`
	Cases     []model.TestCase `json:"cases"`
}

type exploreOutput struct {
	Items          []suitegen.ExploreItem `json:"items"`
	Best           int                    `json:"best"`
	BestRunID      string                 `json:"best_run_id"`
	TotalScoreMean float64                `json:"total_score_mean"`
	TotalScoreStd  float64                `json:"total_score_std"`
}

// registerer avoids handing the client a typed nil registry.
func registerer(reg *prometheus.Registry) prometheus.Registerer {
	if reg == nil {
		return nil
	}
	return reg
}

func printMetrics(a *app, reg *prometheus.Registry) error {
	if reg == nil {
		return nil
	}
	lines, err := metrics.Summarize(reg)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, titleStyle.Render("metrics"))
	for _, line := range lines {
		fmt.Fprintln(a.stdout, mutedStyle.Render(line))
	}
	return nil
}

func writeJSON(a *app, v any) error {
	enc := json.NewEncoder(a.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
