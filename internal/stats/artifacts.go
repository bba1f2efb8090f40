package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"suitegen/internal/model"
)

// SuiteArtifacts is everything exported for one persisted run.
type SuiteArtifacts struct {
	Run         model.RunRecord
	Suite       model.SuiteRecord
	Diagnostics []model.GenerationDiagnostics
}

// WriteSuiteArtifacts writes the run under outDir/<run id> and returns that directory.
func WriteSuiteArtifacts(outDir string, artifacts SuiteArtifacts) (string, error) {
	if artifacts.Run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(outDir, artifacts.Run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "run.json"), artifacts.Run); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "suite.json"), artifacts.Suite); err != nil {
		return "", err
	}
	if err := writeJSON(filepath.Join(runDir, "generation_diagnostics.json"), artifacts.Diagnostics); err != nil {
		return "", err
	}
	if err := writeCSVFile(filepath.Join(runDir, "suite.csv"), func(w io.Writer) error {
		return WriteSuiteCSV(w, artifacts.Suite.Parameters, artifacts.Suite.Cases)
	}); err != nil {
		return "", err
	}
	if err := writeCSVFile(filepath.Join(runDir, "score_series.csv"), func(w io.Writer) error {
		return WriteScoreSeries(w, artifacts.Diagnostics)
	}); err != nil {
		return "", err
	}
	return runDir, nil
}

// WriteSuiteCSV writes one row per case. Each parameter contributes a value
// column and a category column, followed by the expected invalid messages
// joined with "; " and the score.
func WriteSuiteCSV(w io.Writer, params []model.Parameter, cases []model.TestCase) error {
	writer := csv.NewWriter(w)
	header := []string{"rank"}
	for _, param := range params {
		header = append(header, param.Name, param.Name+"_category")
	}
	header = append(header, "expected_invalid_messages", "score")
	if err := writer.Write(header); err != nil {
		return err
	}

	for i, tc := range cases {
		if len(tc.Values) != len(params) {
			return fmt.Errorf("case %d has %d values for %d parameters", i+1, len(tc.Values), len(params))
		}
		record := []string{strconv.Itoa(i + 1)}
		var messages []string
		for _, value := range tc.Values {
			record = append(record, fmt.Sprintf("%v", value.Value), value.Category.String())
			if value.ExpectedInvalidMessage != "" {
				messages = append(messages, value.ExpectedInvalidMessage)
			}
		}
		record = append(record, strings.Join(messages, "; "), strconv.FormatFloat(tc.Score, 'f', -1, 64))
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteScoreSeries writes the per-generation best, mean and min scores.
func WriteScoreSeries(w io.Writer, diagnostics []model.GenerationDiagnostics) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"generation", "best_score", "mean_score", "min_score"}); err != nil {
		return err
	}
	for _, diag := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(diag.Generation),
			strconv.FormatFloat(diag.BestScore, 'f', -1, 64),
			strconv.FormatFloat(diag.MeanScore, 'f', -1, 64),
			strconv.FormatFloat(diag.MinScore, 'f', -1, 64),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadScoreSeries reads the best score column written by WriteScoreSeries.
func ReadScoreSeries(r io.Reader) ([]float64, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, nil
		}
		return nil, err
	}
	if len(header) < 2 {
		return nil, fmt.Errorf("score series header must have at least 2 columns")
	}

	series := make([]float64, 0, 32)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, err
		}
		series = append(series, value)
	}
	return series, nil
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func writeCSVFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return err
	}
	if err := file.Sync(); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}
