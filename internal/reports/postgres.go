package reports

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"photocore/pkg/domain"
)

// Postgres implements Store on a Postgres database through the pgx stdlib
// driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres opens the database at dsn and ensures the reports table.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if dsn == "" {
		dsn = "postgres://localhost/photocore?sslmode=disable"
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("reports: open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reports: ping postgres: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		format_id TEXT NOT NULL,
		overall_pass BOOLEAN NOT NULL,
		score DOUBLE PRECISION NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		payload JSONB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reports: create table: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS reports_format_created
		ON reports (format_id, created_at DESC)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("reports: create index: %w", err)
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Record(ctx context.Context, result domain.ComplianceResult) (Record, error) {
	rec := newRecord(result)
	payload, err := json.Marshal(rec.Result)
	if err != nil {
		return Record{}, fmt.Errorf("reports: encode result: %w", err)
	}
	_, err = p.db.ExecContext(ctx,
		`INSERT INTO reports (id, format_id, overall_pass, score, created_at, payload)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.FormatID, rec.OverallPass, rec.Score, rec.CreatedAt, payload)
	if err != nil {
		return Record{}, fmt.Errorf("reports: insert: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Recent(ctx context.Context, limit int) ([]Record, error) {
	return p.query(ctx,
		`SELECT id, format_id, overall_pass, score, created_at, payload
		 FROM reports ORDER BY created_at DESC, id LIMIT $1`, normalizeLimit(limit))
}

func (p *Postgres) ByFormat(ctx context.Context, formatID string, limit int) ([]Record, error) {
	return p.query(ctx,
		`SELECT id, format_id, overall_pass, score, created_at, payload
		 FROM reports WHERE format_id = $1 ORDER BY created_at DESC, id LIMIT $2`,
		formatID, normalizeLimit(limit))
}

func (p *Postgres) PassRate(ctx context.Context, formatID string) (float64, int, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE overall_pass) FROM reports WHERE format_id = $1`,
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

func (p *Postgres) Close() error { return p.db.Close() }

func (p *Postgres) query(ctx context.Context, q string, args ...any) ([]Record, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("reports: query: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanRecords(rows)
}
