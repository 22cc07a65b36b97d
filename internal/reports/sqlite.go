package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"photocore/pkg/domain"
)

// SQLite implements Store on a local SQLite database. The full result is
// stored as a JSON payload beside the indexed columns.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and if needed creates) the database at path.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "photocore_reports.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("reports: create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("reports: open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		format_id TEXT NOT NULL,
		overall_pass INTEGER NOT NULL,
		score REAL NOT NULL,
		created_at TEXT NOT NULL,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reports: create table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS reports_format_created
		ON reports (format_id, created_at DESC)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reports: create index: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Record(ctx context.Context, result domain.ComplianceResult) (Record, error) {
	rec := newRecord(result)
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return Record{}, fmt.Errorf("reports: encode result: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO reports (id, format_id, overall_pass, score, created_at, payload)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.FormatID, boolToInt(rec.OverallPass), rec.Score,
		rec.CreatedAt.Format(timeLayout), payload)
	if err != nil {
		return Record{}, fmt.Errorf("reports: insert: %w", err)
	}
	return rec, nil
}

func (s *SQLite) Recent(ctx context.Context, limit int) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, format_id, overall_pass, score, created_at, payload
		 FROM reports ORDER BY created_at DESC, id LIMIT ?`, normalizeLimit(limit))
}

func (s *SQLite) ByFormat(ctx context.Context, formatID string, limit int) ([]Record, error) {
	return s.query(ctx,
		`SELECT id, format_id, overall_pass, score, created_at, payload
		 FROM reports WHERE format_id = ? ORDER BY created_at DESC, id LIMIT ?`,
		formatID, normalizeLimit(limit))
}

func (s *SQLite) PassRate(ctx context.Context, formatID string) (float64, int, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(overall_pass), 0) FROM reports WHERE format_id = ?`,
		formatID)
	var total, passed int
	if err := row.Scan(&total, &passed); err != nil {
		return 0, 0, fmt.Errorf("reports: pass rate: %w", err)
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(passed) / float64(total), total, nil
}

func (s *SQLite) Close() error { return s.db.Close() }

func (s *SQLite) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}
