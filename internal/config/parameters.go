package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"suitegen/internal/model"
)

var ErrInvalidParameters = errors.New("invalid parameter file")

type parameterFile struct {
	Parameters []model.Parameter `json:"parameters" yaml:"parameters" validate:"dive"`
}

// LoadParameters reads parameter domains from a YAML or JSON file. The
// format is chosen by extension; anything but .json is parsed as YAML.
func LoadParameters(path string) ([]model.Parameter, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseParameters(data, strings.EqualFold(filepath.Ext(path), ".json"))
}

func ParseParameters(data []byte, isJSON bool) ([]model.Parameter, error) {
	var file parameterFile
	if isJSON {
		if err := json.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
	} else {
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
		}
	}
	if err := validate.Struct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	return file.Parameters, nil
}
