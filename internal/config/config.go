// Package config loads optimizer settings and parameter domain files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"suitegen/internal/evo"
)

// ErrInvalidConfig is returned for settings outside their documented ranges.
var ErrInvalidConfig = evo.ErrInvalidConfig

var validate = validator.New(validator.WithRequiredStructEnabled())

// Settings is the file-level configuration. Fields omitted from a file keep
// their defaults.
type Settings struct {
	Optimizer OptimizerSettings `json:"optimizer" yaml:"optimizer"`
	Storage   StorageSettings   `json:"storage" yaml:"storage"`
	Log       LogSettings       `json:"log" yaml:"log"`
}

type OptimizerSettings struct {
	TotalPopulationGenerations    int     `json:"total_population_generations" yaml:"total_population_generations" validate:"gte=0"`
	MutationRate                  float64 `json:"mutation_rate" yaml:"mutation_rate" validate:"gte=0,lte=1"`
	FinalPopulationSelectionRatio float64 `json:"final_population_selection_ratio" yaml:"final_population_selection_ratio" validate:"gt=0,lte=1"`
	EliteSelectionRatio           float64 `json:"elite_selection_ratio" yaml:"elite_selection_ratio" validate:"gt=0,lte=1"`
	OnlookerSelectionRatio        float64 `json:"onlooker_selection_ratio" yaml:"onlooker_selection_ratio" validate:"gte=0,lte=1"`
	ScoutSelectionRatio           float64 `json:"scout_selection_ratio" yaml:"scout_selection_ratio" validate:"gte=0,lte=1"`
	EnableOnlookerSelection       bool    `json:"enable_onlooker_selection" yaml:"enable_onlooker_selection"`
	EnableScoutPhase              bool    `json:"enable_scout_phase" yaml:"enable_scout_phase"`
	EnforceMutationUniqueness     bool    `json:"enforce_mutation_uniqueness" yaml:"enforce_mutation_uniqueness"`
	StagnationThresholdPercentage float64 `json:"stagnation_threshold_percentage" yaml:"stagnation_threshold_percentage" validate:"gt=0,lte=1"`
	CoolingRate                   float64 `json:"cooling_rate" yaml:"cooling_rate" validate:"gt=0,lte=1"`
	AllowMultipleInvalidInputs    bool    `json:"allow_multiple_invalid_inputs" yaml:"allow_multiple_invalid_inputs"`
	Seed                          int64   `json:"seed" yaml:"seed"`
	CountMode                     string  `json:"count_mode" yaml:"count_mode" validate:"omitempty,oneof=literal scaled"`
	Mutator                       string  `json:"mutator,omitempty" yaml:"mutator,omitempty"`
}

type StorageSettings struct {
	Kind   string `json:"kind" yaml:"kind" validate:"omitempty,oneof=memory sqlite"`
	DBPath string `json:"db_path" yaml:"db_path" validate:"required_if=Kind sqlite"`
}

type LogSettings struct {
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=debug info warn error"`
}

func Default() Settings {
	d := evo.DefaultConfig()
	return Settings{
		Optimizer: OptimizerSettings{
			TotalPopulationGenerations:    d.TotalPopulationGenerations,
			MutationRate:                  d.MutationRate,
			FinalPopulationSelectionRatio: d.FinalPopulationSelectionRatio,
			EliteSelectionRatio:           d.EliteSelectionRatio,
			OnlookerSelectionRatio:        d.OnlookerSelectionRatio,
			ScoutSelectionRatio:           d.ScoutSelectionRatio,
			EnableOnlookerSelection:       d.EnableOnlookerSelection,
			EnableScoutPhase:              d.EnableScoutPhase,
			EnforceMutationUniqueness:     d.EnforceMutationUniqueness,
			StagnationThresholdPercentage: d.StagnationThresholdPercentage,
			CoolingRate:                   d.CoolingRate,
			AllowMultipleInvalidInputs:    d.AllowMultipleInvalidInputs,
			Seed:                          d.Seed,
			CountMode:                     string(d.CountMode),
		},
		Storage: StorageSettings{Kind: "memory", DBPath: "suitegen.db"},
		Log:     LogSettings{Level: "info"},
	}
}

// Load reads a YAML settings file over the defaults. An empty path returns
// the defaults.
func Load(path string) (Settings, error) {
	settings := Default()
	if path == "" {
		return settings, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	if err := yaml.Unmarshal(data, &settings); err != nil {
		return Settings{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := settings.Validate(); err != nil {
		return Settings{}, err
	}
	return settings, nil
}

func (s Settings) Validate() error {
	return validateStruct(s)
}

// OptimizerConfig converts the settings into an engine configuration.
func (o OptimizerSettings) OptimizerConfig() evo.Config {
	return evo.Config{
		TotalPopulationGenerations:    o.TotalPopulationGenerations,
		MutationRate:                  o.MutationRate,
		FinalPopulationSelectionRatio: o.FinalPopulationSelectionRatio,
		EliteSelectionRatio:           o.EliteSelectionRatio,
		OnlookerSelectionRatio:        o.OnlookerSelectionRatio,
		ScoutSelectionRatio:           o.ScoutSelectionRatio,
		EnableOnlookerSelection:       o.EnableOnlookerSelection,
		EnableScoutPhase:              o.EnableScoutPhase,
		EnforceMutationUniqueness:     o.EnforceMutationUniqueness,
		StagnationThresholdPercentage: o.StagnationThresholdPercentage,
		CoolingRate:                   o.CoolingRate,
		AllowMultipleInvalidInputs:    o.AllowMultipleInvalidInputs,
		Seed:                          o.Seed,
		CountMode:                     evo.CountMode(o.CountMode),
	}
}

func validateStruct(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s failed %s=%s (got %v)", fe.Namespace(), fe.Tag(), fe.Param(), fe.Value()))
			continue
		}
		msgs = append(msgs, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
}
