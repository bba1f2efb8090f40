package suitegen

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"suitegen/internal/evo"
	"suitegen/internal/metrics"
	"suitegen/internal/model"
	"suitegen/internal/pairwise"
	"suitegen/internal/stats"
	"suitegen/internal/storage"
)

const (
	defaultDBPath     = "suitegen.db"
	defaultExportsDir = "exports"
)

var ErrRunNotFound = errors.New("run not found")

type Options struct {
	StoreKind string
	DBPath    string
	// Logger receives run lifecycle events. Nil discards them.
	Logger *charmlog.Logger
	// Registerer enables prometheus collectors for every run. Nil disables metrics.
	Registerer prometheus.Registerer
}

type Client struct {
	store    storage.Store
	logger   *charmlog.Logger
	recorder *metrics.Recorder
	now      func() time.Time
}

type GenerateRequest struct {
	Parameters []model.Parameter
	Config     evo.Config
	// Mutator names a registered mutator; empty selects the default.
	Mutator string
}

type GenerateSummary struct {
	RunID       string
	SeedSize    int
	Final       []model.TestCase
	BestScore   float64
	EliteCount  int
	Diagnostics []model.GenerationDiagnostics
}

type RunsRequest struct {
	Limit int
}

type SuiteRequest struct {
	RunID  string
	Latest bool
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExploreRequest struct {
	Parameters []model.Parameter
	Config     evo.Config
	Mutator    string
	Seeds      []int64
	Workers    int
}

type ExploreItem struct {
	Seed       int64   `json:"seed"`
	FinalSize  int     `json:"final_size"`
	BestScore  float64 `json:"best_score"`
	TotalScore float64 `json:"total_score"`
}

type ExploreSummary struct {
	Items []ExploreItem
	// Best indexes Items; the winning run is persisted under BestRunID.
	Best      int
	BestRunID string
	// Spread of the total final score across seeds.
	TotalScoreMean float64
	TotalScoreStd  float64
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

type PairsSummary struct {
	Cases     []model.TestCase
	PairCount int
	Uncovered []pairwise.Pair
}

// NewClient opens and initializes the configured store.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	store, err := storage.NewStore(opts.StoreKind, dbPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		_ = storage.CloseIfSupported(store)
		return nil, fmt.Errorf("init %s store: %w", opts.StoreKind, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = charmlog.New(io.Discard)
	}
	client := &Client{
		store:  store,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if opts.Registerer != nil {
		client.recorder = metrics.NewRecorder(opts.Registerer)
	}
	return client, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Generate runs one optimization and persists the run, its final suite and
// its diagnostics.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (GenerateSummary, error) {
	opts, err := c.optimizerOptions(req.Mutator)
	if err != nil {
		return GenerateSummary{}, err
	}
	optimizer, err := evo.NewOptimizer(req.Config, opts...)
	if err != nil {
		return GenerateSummary{}, err
	}

	c.logger.Info("starting run", "parameters", len(req.Parameters), "generations", req.Config.TotalPopulationGenerations, "seed", req.Config.Seed)
	result, err := optimizer.Run(ctx, req.Parameters)
	if err != nil {
		return GenerateSummary{}, err
	}

	runID, err := c.persist(ctx, req.Parameters, result)
	if err != nil {
		return GenerateSummary{}, err
	}
	c.logger.Info("run complete", "run_id", runID, "seed_size", len(result.Seed), "final_size", len(result.Final), "repaired", result.Repaired, "best_score", result.BestScore())
	if want := evo.FinalSize(len(result.Seed), req.Config.FinalPopulationSelectionRatio); len(result.Final) < want {
		c.logger.Warn("suite is short: too few cases with at most one invalid value", "want", want, "got", len(result.Final))
	}

	return GenerateSummary{
		RunID:       runID,
		SeedSize:    len(result.Seed),
		Final:       result.Final,
		BestScore:   result.BestScore(),
		EliteCount:  result.EliteCount,
		Diagnostics: result.Diagnostics,
	}, nil
}

// Explore runs one optimization per seed in parallel and persists only the
// run with the highest total final score.
func (c *Client) Explore(ctx context.Context, req ExploreRequest) (ExploreSummary, error) {
	opts, err := c.optimizerOptions(req.Mutator)
	if err != nil {
		return ExploreSummary{}, err
	}

	c.logger.Info("starting exploration", "seeds", len(req.Seeds), "workers", req.Workers)
	results, err := evo.Explore(ctx, req.Config, req.Parameters, req.Seeds, req.Workers, opts...)
	if err != nil {
		return ExploreSummary{}, err
	}

	summary := ExploreSummary{Items: make([]ExploreItem, len(results)), Best: evo.BestResult(results)}
	totals := make([]float64, len(results))
	for i, result := range results {
		summary.Items[i] = ExploreItem{
			Seed:       result.Config.Seed,
			FinalSize:  len(result.Final),
			BestScore:  result.BestScore(),
			TotalScore: result.TotalScore(),
		}
		totals[i] = result.TotalScore()
	}
	summary.TotalScoreMean, summary.TotalScoreStd, _, _ = stats.SeriesStats(totals)
	if summary.Best < 0 {
		return summary, nil
	}

	runID, err := c.persist(ctx, req.Parameters, results[summary.Best])
	if err != nil {
		return ExploreSummary{}, err
	}
	summary.BestRunID = runID
	c.logger.Info("exploration complete", "best_seed", summary.Items[summary.Best].Seed, "run_id", runID)
	return summary, nil
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

func (c *Client) Suite(ctx context.Context, req SuiteRequest) (model.SuiteRecord, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return model.SuiteRecord{}, err
	}
	suite, ok, err := c.store.GetSuite(ctx, runID)
	if err != nil {
		return model.SuiteRecord{}, err
	}
	if !ok {
		return model.SuiteRecord{}, fmt.Errorf("%w: suite for run id %s", ErrRunNotFound, runID)
	}
	return suite, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: diagnostics for run id %s", ErrRunNotFound, runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

// Export writes the run, its suite and its diagnostics as JSON and CSV files
// under OutDir/<run id>.
func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.OutDir == "" {
		req.OutDir = defaultExportsDir
	}
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest)
	if err != nil {
		return ExportSummary{}, err
	}

	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return ExportSummary{}, err
	}
	if !ok {
		return ExportSummary{}, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	suite, err := c.Suite(ctx, SuiteRequest{RunID: runID})
	if err != nil {
		return ExportSummary{}, err
	}
	diagnostics, err := c.Diagnostics(ctx, DiagnosticsRequest{RunID: runID})
	if err != nil {
		return ExportSummary{}, err
	}

	dir, err := stats.WriteSuiteArtifacts(req.OutDir, stats.SuiteArtifacts{Run: run, Suite: suite, Diagnostics: diagnostics})
	if err != nil {
		return ExportSummary{}, err
	}
	c.logger.Info("exported run", "run_id", runID, "dir", dir)
	return ExportSummary{RunID: runID, Directory: filepath.Clean(dir)}, nil
}

// Pairs builds the pairwise seed for params and reports its coverage.
func (c *Client) Pairs(_ context.Context, params []model.Parameter) (PairsSummary, error) {
	cases, err := pairwise.Generate(params)
	if err != nil {
		return PairsSummary{}, err
	}
	return PairsSummary{
		Cases:     cases,
		PairCount: pairwise.PairCount(params),
		Uncovered: pairwise.Uncovered(params, cases),
	}, nil
}

func (c *Client) optimizerOptions(mutatorName string) ([]evo.Option, error) {
	mutator, err := evo.ResolveMutator(mutatorName)
	if err != nil {
		return nil, err
	}
	opts := []evo.Option{evo.WithMutator(mutator)}
	if c.recorder != nil {
		opts = append(opts, evo.WithObserver(c.recorder))
	}
	return opts, nil
}

func (c *Client) persist(ctx context.Context, params []model.Parameter, result evo.RunResult) (string, error) {
	runID := uuid.NewString()
	names := make([]string, len(params))
	for i, param := range params {
		names[i] = param.Name
	}

	run := model.RunRecord{
		ID:           runID,
		CreatedAtUTC: c.now(),
		Seed:         result.Config.Seed,
		Parameters:   names,
		Config:       configSnapshot(result.Config),
		SeedSize:     len(result.Seed),
		FinalSize:    len(result.Final),
		BestScore:    result.BestScore(),
		Generations:  result.Config.TotalPopulationGenerations,
	}
	if err := c.store.SaveRun(ctx, run); err != nil {
		return "", fmt.Errorf("save run %s: %w", runID, err)
	}
	suite := model.SuiteRecord{RunID: runID, Parameters: params, Cases: result.Final}
	if err := c.store.SaveSuite(ctx, suite); err != nil {
		return "", fmt.Errorf("save suite %s: %w", runID, err)
	}
	if err := c.store.SaveDiagnostics(ctx, runID, result.Diagnostics); err != nil {
		return "", fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	return runID, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if runID != "" {
		return runID, nil
	}
	if !latest {
		return "", errors.New("run id or latest is required")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", fmt.Errorf("%w: no runs available", ErrRunNotFound)
	}
	return runs[0].ID, nil
}

func configSnapshot(cfg evo.Config) map[string]any {
	return map[string]any{
		"total_population_generations":     cfg.TotalPopulationGenerations,
		"mutation_rate":                    cfg.MutationRate,
		"final_population_selection_ratio": cfg.FinalPopulationSelectionRatio,
		"elite_selection_ratio":            cfg.EliteSelectionRatio,
		"onlooker_selection_ratio":         cfg.OnlookerSelectionRatio,
		"scout_selection_ratio":            cfg.ScoutSelectionRatio,
		"enable_onlooker_selection":        cfg.EnableOnlookerSelection,
		"enable_scout_phase":               cfg.EnableScoutPhase,
		"enforce_mutation_uniqueness":      cfg.EnforceMutationUniqueness,
		"stagnation_threshold_percentage":  cfg.StagnationThresholdPercentage,
		"cooling_rate":                     cfg.CoolingRate,
		"allow_multiple_invalid_inputs":    cfg.AllowMultipleInvalidInputs,
		"count_mode":                       string(cfg.CountMode),
	}
}
