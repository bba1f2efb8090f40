package storage

import (
	"encoding/json"
	"errors"
	"fmt"

	"suitegen/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp fills in the current versions on records that were built without them.
func Stamp(record *model.VersionedRecord) {
	if record.SchemaVersion == 0 {
		record.SchemaVersion = CurrentSchemaVersion
	}
	if record.CodecVersion == 0 {
		record.CodecVersion = CurrentCodecVersion
	}
}

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeSuite(suite model.SuiteRecord) ([]byte, error) {
	return json.Marshal(suite)
}

func DecodeSuite(data []byte) (model.SuiteRecord, error) {
	var suite model.SuiteRecord
	if err := json.Unmarshal(data, &suite); err != nil {
		return model.SuiteRecord{}, err
	}
	if err := checkVersion(suite.VersionedRecord); err != nil {
		return model.SuiteRecord{}, err
	}
	return suite, nil
}

func EncodeDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch, v.SchemaVersion, v.CodecVersion)
	}
	return nil
}
