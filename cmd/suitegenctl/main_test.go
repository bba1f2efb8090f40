package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"suitegen/internal/config"
	"suitegen/pkg/suitegen"
)

const textPhoneParams = "../../testdata/params/text_phone.yaml"

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := newRootCmd(&stdout, &stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

// ---------------------------------------------------------------------------
// generate
// ---------------------------------------------------------------------------

func TestGenerate_TextOutput(t *testing.T) {
	stdout, _, err := execute(t, "generate", "--params", textPhoneParams, "--generations", "3")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "seed cases: 12") {
		t.Errorf("expected seed size in output, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "final cases: 6") {
		t.Errorf("expected final size in output, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "SCORE") || !strings.Contains(stdout, "phone") {
		t.Errorf("expected case table headers, got:\n%s", stdout)
	}
}

func TestGenerate_JSONOutput(t *testing.T) {
	stdout, _, err := execute(t, "generate", "--params", textPhoneParams, "--generations", "3", "--seed", "11", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed generateOutput
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput:\n%s", err, stdout)
	}
	if parsed.RunID == "" {
		t.Error("expected run id")
	}
	if parsed.SeedSize != 12 || len(parsed.Cases) != 6 {
		t.Errorf("unexpected sizes: seed=%d final=%d", parsed.SeedSize, len(parsed.Cases))
	}
	for i, tc := range parsed.Cases {
		if len(tc.Values) != 2 {
			t.Fatalf("case %d: expected 2 values, got %d", i, len(tc.Values))
		}
		if tc.InvalidCount() > 1 {
			t.Errorf("case %d holds %d invalid values", i, tc.InvalidCount())
		}
		if i > 0 && tc.Score > parsed.Cases[i-1].Score {
			t.Errorf("cases not ranked by score at %d", i)
		}
	}
}

func TestGenerate_ConfigFileAndFlagOverrides(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "suitegen.yaml")
	content := "optimizer:\n  final_population_selection_ratio: 0.25\n  total_population_generations: 2\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	stdout, _, err := execute(t, "generate", "--config", cfgPath, "--params", textPhoneParams, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed generateOutput
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed.Cases) != 3 {
		t.Errorf("expected config ratio to keep 3 cases, got %d", len(parsed.Cases))
	}

	stdout, _, err = execute(t, "generate", "--config", cfgPath, "--params", textPhoneParams, "--final-ratio", "0.5", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed.Cases) != 6 {
		t.Errorf("expected flag to override config ratio, got %d cases", len(parsed.Cases))
	}
}

func TestGenerate_Metrics(t *testing.T) {
	stdout, _, err := execute(t, "generate", "--params", textPhoneParams, "--generations", "2", "--metrics")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "suitegen_runs_total") {
		t.Errorf("expected metrics summary, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "suitegen_generations_total 2") {
		t.Errorf("expected 2 generations in metrics summary, got:\n%s", stdout)
	}
}

func TestGenerate_InvalidSettings(t *testing.T) {
	_, _, err := execute(t, "generate", "--params", textPhoneParams, "--mutation-rate", "2")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	_, _, err = execute(t, "generate", "--params", textPhoneParams, "--count-mode", "sideways")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for count mode, got %v", err)
	}

	_, _, err = execute(t, "generate", "--params", textPhoneParams, "--store", "postgres")
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig for store kind, got %v", err)
	}
}

func TestGenerate_RequiresParams(t *testing.T) {
	_, _, err := execute(t, "generate")
	if err == nil {
		t.Fatal("expected error without --params")
	}
	if !strings.Contains(err.Error(), "params") {
		t.Errorf("unexpected error message: %s", err)
	}
}

// ---------------------------------------------------------------------------
// explore
// ---------------------------------------------------------------------------

func TestExplore_JSONOutput(t *testing.T) {
	stdout, _, err := execute(t, "explore", "--params", textPhoneParams, "--generations", "2", "--runs", "3", "--workers", "2", "--seed", "5", "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed exploreOutput
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v\noutput:\n%s", err, stdout)
	}
	if len(parsed.Items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(parsed.Items))
	}
	for i, item := range parsed.Items {
		if item.Seed != int64(5+i) {
			t.Errorf("item %d: expected seed %d, got %d", i, 5+i, item.Seed)
		}
	}
	if parsed.Best < 0 || parsed.Best >= 3 || parsed.BestRunID == "" {
		t.Errorf("unexpected best selection: %+v", parsed)
	}
}

func TestExplore_RejectsZeroRuns(t *testing.T) {
	_, _, err := execute(t, "explore", "--params", textPhoneParams, "--runs", "0")
	if err == nil {
		t.Fatal("expected error for zero runs")
	}
}

// ---------------------------------------------------------------------------
// runs / show / pairs
// ---------------------------------------------------------------------------

func TestRuns_EmptyMemoryStore(t *testing.T) {
	stdout, stderr, err := execute(t, "runs")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "no runs found") {
		t.Errorf("expected empty listing, got:\n%s", stdout)
	}
	if !strings.Contains(stderr, "memory store") {
		t.Errorf("expected ephemeral store warning, got:\n%s", stderr)
	}
}

func TestShow_LatestOnEmptyStore(t *testing.T) {
	_, _, err := execute(t, "show", "--latest")
	if !errors.Is(err, suitegen.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestPairs_FullCoverage(t *testing.T) {
	stdout, _, err := execute(t, "pairs", "--params", textPhoneParams, "--json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var parsed pairsOutput
	if err := json.Unmarshal([]byte(stdout), &parsed); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(parsed.Cases) != 12 || parsed.PairCount != 12 || parsed.Covered != 12 {
		t.Errorf("unexpected coverage: cases=%d pairs=%d covered=%d", len(parsed.Cases), parsed.PairCount, parsed.Covered)
	}
}

func TestPairs_TextOutput(t *testing.T) {
	stdout, _, err := execute(t, "pairs", "--params", textPhoneParams)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(stdout, "pairs covered: 12/12") {
		t.Errorf("expected coverage line, got:\n%s", stdout)
	}
	if !strings.Contains(stdout, "BoundaryMax+1") {
		t.Errorf("expected every text value in the seed table, got:\n%s", stdout)
	}
}

func TestPairs_RejectsSingleParameter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "one.yaml")
	content := "parameters:\n  - name: only\n    domain:\n      - value: 1\n        category: valid\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write params: %v", err)
	}
	_, _, err := execute(t, "pairs", "--params", path)
	if err == nil {
		t.Fatal("expected error for a single parameter")
	}
	if !strings.Contains(err.Error(), "at least two parameters") {
		t.Errorf("unexpected error message: %s", err)
	}
}

func TestExport_RequiresRun(t *testing.T) {
	_, _, err := execute(t, "export", "--latest", "--out", t.TempDir())
	if !errors.Is(err, suitegen.ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}
