//go:build sqlite

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"

	"suitegen/internal/model"

	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *sql.DB
}

func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

func (s *SQLiteStore) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}

	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run model.RunRecord) error {
	Stamp(&run.VersionedRecord)
	payload, err := EncodeRun(run)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "runs", "id", []column{
		{"id", run.ID},
		{"created_at", run.CreatedAtUTC.UnixNano()},
		{"schema_version", run.SchemaVersion},
		{"codec_version", run.CodecVersion},
		{"payload", payload},
	})
}

func (s *SQLiteStore) GetRun(ctx context.Context, id string) (model.RunRecord, bool, error) {
	payload, ok, err := s.payload(ctx, "runs", "id", id)
	if err != nil || !ok {
		return model.RunRecord{}, false, err
	}
	run, err := DecodeRun(payload)
	if err != nil {
		return model.RunRecord{}, false, fmt.Errorf("decode run %s: %w", id, err)
	}
	return run, true, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context) ([]model.RunRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, `SELECT id, payload FROM runs ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []model.RunRecord
	for rows.Next() {
		var (
			id      string
			payload []byte
		)
		if err := rows.Scan(&id, &payload); err != nil {
			return nil, err
		}
		run, err := DecodeRun(payload)
		if err != nil {
			return nil, fmt.Errorf("decode run %s: %w", id, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRunsNewestFirst(runs)
	return runs, nil
}

func (s *SQLiteStore) SaveSuite(ctx context.Context, suite model.SuiteRecord) error {
	Stamp(&suite.VersionedRecord)
	payload, err := EncodeSuite(suite)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "suites", "run_id", []column{
		{"run_id", suite.RunID},
		{"schema_version", suite.SchemaVersion},
		{"codec_version", suite.CodecVersion},
		{"payload", payload},
	})
}

func (s *SQLiteStore) GetSuite(ctx context.Context, runID string) (model.SuiteRecord, bool, error) {
	payload, ok, err := s.payload(ctx, "suites", "run_id", runID)
	if err != nil || !ok {
		return model.SuiteRecord{}, false, err
	}
	suite, err := DecodeSuite(payload)
	if err != nil {
		return model.SuiteRecord{}, false, fmt.Errorf("decode suite %s: %w", runID, err)
	}
	return suite, true, nil
}

func (s *SQLiteStore) SaveDiagnostics(ctx context.Context, runID string, diagnostics []model.GenerationDiagnostics) error {
	payload, err := EncodeDiagnostics(diagnostics)
	if err != nil {
		return err
	}
	return s.upsert(ctx, "diagnostics", "run_id", []column{
		{"run_id", runID},
		{"payload", payload},
	})
}

func (s *SQLiteStore) GetDiagnostics(ctx context.Context, runID string) ([]model.GenerationDiagnostics, bool, error) {
	payload, ok, err := s.payload(ctx, "diagnostics", "run_id", runID)
	if err != nil || !ok {
		return nil, false, err
	}
	diagnostics, err := DecodeDiagnostics(payload)
	if err != nil {
		return nil, false, fmt.Errorf("decode diagnostics %s: %w", runID, err)
	}
	return diagnostics, true, nil
}

type column struct {
	name  string
	value any
}

// upsert writes one row keyed by key, overwriting every other column on
// conflict. Table and column names are package constants, never user input.
func (s *SQLiteStore) upsert(ctx context.Context, table, key string, columns []column) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}

	names := make([]string, len(columns))
	args := make([]any, len(columns))
	var updates []string
	for i, col := range columns {
		names[i] = col.name
		args[i] = col.value
		if col.name != key {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", col.name, col.name))
		}
	}
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT(%s) DO UPDATE SET %s",
		table,
		strings.Join(names, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "),
		key,
		strings.Join(updates, ", "),
	)
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// payload loads the encoded record stored under key, reporting false when
// no row exists.
func (s *SQLiteStore) payload(ctx context.Context, table, key, value string) ([]byte, bool, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, false, err
	}

	var payload []byte
	query := fmt.Sprintf("SELECT payload FROM %s WHERE %s = ?", table, key)
	if err := db.QueryRowContext(ctx, query, value).Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return payload, true, nil
}

func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errNotInitialized
	}
	return s.db, nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			created_at INTEGER NOT NULL,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS suites (
			run_id TEXT PRIMARY KEY,
			schema_version INTEGER NOT NULL,
			codec_version INTEGER NOT NULL,
			payload BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT PRIMARY KEY,
			payload BLOB NOT NULL
		);
	`)
	return err
}
