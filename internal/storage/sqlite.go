package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteRegistry implements Registry using SQLite.
type SQLiteRegistry struct {
	db *sql.DB
}

// NewSQLiteRegistry opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. The database runs in
// WAL mode with a busy timeout so that concurrent runs can append.
func NewSQLiteRegistry(dbPath string) (*SQLiteRegistry, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteRegistry{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		run_id TEXT PRIMARY KEY,
		vendor_set_id TEXT NOT NULL,
		pipeline_id TEXT NOT NULL,
		n_docs INTEGER NOT NULL,
		n_cases INTEGER NOT NULL,
		n_eval INTEGER NOT NULL,
		n_skipped INTEGER NOT NULL,
		n_bad_gold INTEGER NOT NULL,
		metrics TEXT,
		inputs TEXT,
		out_dir TEXT,
		artifact_bytes INTEGER NOT NULL DEFAULT 0,
		duration_ms REAL NOT NULL DEFAULT 0,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_pipeline ON runs(pipeline_id, created_at);
	`
	_, err := db.Exec(schema)
	return err
}

const runColumns = `run_id, vendor_set_id, pipeline_id, n_docs, n_cases, n_eval, n_skipped, n_bad_gold,
		metrics, inputs, out_dir, artifact_bytes, duration_ms, created_at`

// RecordRun inserts a run. A nil Metrics map is stored as NULL.
func (s *SQLiteRegistry) RecordRun(ctx context.Context, rec *RunRecord) error {
	var metricsJSON, inputsJSON sql.NullString
	if rec.Metrics != nil {
		b, err := json.Marshal(rec.Metrics)
		if err != nil {
			return fmt.Errorf("failed to marshal metrics: %w", err)
		}
		metricsJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.Inputs != nil {
		b, err := json.Marshal(rec.Inputs)
		if err != nil {
			return fmt.Errorf("failed to marshal inputs: %w", err)
		}
		inputsJSON = sql.NullString{String: string(b), Valid: true}
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.VendorSetID, rec.PipelineID, rec.NDocs, rec.NCases, rec.NEval, rec.NSkipped, rec.NBadGold,
		metricsJSON, inputsJSON, rec.OutDir, rec.ArtifactBytes, rec.DurationMS, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", rec.RunID, err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*RunRecord, error) {
	var (
		rec                 RunRecord
		metricsJSON, inputs sql.NullString
		outDir              sql.NullString
	)
	if err := row.Scan(&rec.RunID, &rec.VendorSetID, &rec.PipelineID, &rec.NDocs, &rec.NCases, &rec.NEval,
		&rec.NSkipped, &rec.NBadGold, &metricsJSON, &inputs, &outDir, &rec.ArtifactBytes, &rec.DurationMS, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.OutDir = outDir.String
	if metricsJSON.Valid && metricsJSON.String != "" {
		if err := json.Unmarshal([]byte(metricsJSON.String), &rec.Metrics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metrics: %w", err)
		}
	}
	if inputs.Valid && inputs.String != "" {
		if err := json.Unmarshal([]byte(inputs.String), &rec.Inputs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal inputs: %w", err)
		}
	}
	return &rec, nil
}

// GetRun returns a run by id.
func (s *SQLiteRegistry) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns returns runs matching f, newest first.
func (s *SQLiteRegistry) ListRuns(ctx context.Context, f RunFilter) ([]*RunRecord, error) {
	var (
		where []string
		args  []any
	)
	if f.PipelineID != "" {
		where = append(where, "pipeline_id = ?")
		args = append(args, f.PipelineID)
	}
	if f.VendorSetID != "" {
		where = append(where, "vendor_set_id = ?")
		args = append(args, f.VendorSetID)
	}
	query := `SELECT ` + runColumns + ` FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = -1
	}
	query += " ORDER BY created_at DESC, run_id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, f.Offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// CountRuns returns the total number of recorded runs.
func (s *SQLiteRegistry) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteRegistry) Close() error {
	return s.db.Close()
}
