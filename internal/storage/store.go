package storage

import (
	"cmp"
	"context"
	"slices"

	"suitegen/internal/model"
)

// Store persists optimizer runs, their final suites and per-generation diagnostics.
type Store interface {
	Init(ctx context.Context) error
	SaveRun(ctx context.Context, run model.RunRecord) error
	GetRun(ctx context.Context, id string) (model.RunRecord, bool, error)
	// ListRuns returns runs newest first.
	ListRuns(ctx context.Context) ([]model.RunRecord, error)
	SaveSuite(ctx context.Context, suite model.SuiteRecord) error
	GetSuite(ctx context.Context, runID string) (model.SuiteRecord, bool, error)
	SaveDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error
	GetDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error)
}

func sortRunsNewestFirst(runs []model.RunRecord) {
	slices.SortStableFunc(runs, func(a, b model.RunRecord) int {
		if c := b.CreatedAtUTC.Compare(a.CreatedAtUTC); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}
