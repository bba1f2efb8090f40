package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord summarizes one optimizer run.
type RunRecord struct {
	VersionedRecord
	ID           string         `json:"id"`
	CreatedAtUTC time.Time      `json:"created_at_utc"`
	Seed         int64          `json:"seed"`
	Parameters   []string       `json:"parameters"`
	Config       map[string]any `json:"config,omitempty"`
	SeedSize     int            `json:"seed_size"`
	FinalSize    int            `json:"final_size"`
	BestScore    float64        `json:"best_score"`
	Generations  int            `json:"generations"`
}

// SuiteRecord is the final ranked suite of a run.
type SuiteRecord struct {
	VersionedRecord
	RunID      string      `json:"run_id"`
	Parameters []Parameter `json:"parameters"`
	Cases      []TestCase  `json:"cases"`
}

type GenerationDiagnostics struct {
	Generation          int     `json:"generation"`
	BestScore           float64 `json:"best_score"`
	MeanScore           float64 `json:"mean_score"`
	MinScore            float64 `json:"min_score"`
	PopulationSize      int     `json:"population_size"`
	DistinctCases       int     `json:"distinct_cases"`
	Temperature         float64 `json:"temperature"`
	MutationsAttempted  int     `json:"mutations_attempted"`
	MutationsAccepted   int     `json:"mutations_accepted"`
	MutationsRejected   int     `json:"mutations_rejected"`
	MutationsDuplicate  int     `json:"mutations_duplicate"`
	OnlookersAdded      int     `json:"onlookers_added"`
	ScoutsReplaced      int     `json:"scouts_replaced"`
	ScoutPhaseActivated bool    `json:"scout_phase_activated"`
}
