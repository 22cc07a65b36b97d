// Package reports records compliance results so operators can audit past
// validations. Backends cover process memory, SQLite and Postgres.
package reports

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"photocore/pkg/domain"
)

// Record is one archived validation outcome. Result holds the full
// compliance result as recorded; the indexed columns beside it exist so
// queries never need to unpack the payload.
type Record struct {
	ID          string                  `json:"id"`
	FormatID    string                  `json:"format_id"`
	OverallPass bool                    `json:"overall_pass"`
	Score       float64                 `json:"score"`
	CreatedAt   time.Time               `json:"created_at"`
	Result      domain.ComplianceResult `json:"result"`
}

// Store archives and queries validation records.
type Store interface {
	// Record archives one result and returns the stored record.
	Record(ctx context.Context, result domain.ComplianceResult) (Record, error)
	// Recent returns the newest records, most recent first, up to limit.
	Recent(ctx context.Context, limit int) ([]Record, error)
	// ByFormat returns the newest records for one format, most recent first.
	ByFormat(ctx context.Context, formatID string, limit int) ([]Record, error)
	// PassRate reports the fraction of archived validations that passed for
	// a format, and how many records that covers.
	PassRate(ctx context.Context, formatID string) (float64, int, error)
	// Close releases the backing resources.
	Close() error
}

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("reports: store closed")

func newRecord(result domain.ComplianceResult) Record {
	return Record{
		ID:          uuid.NewString(),
		FormatID:    result.FormatID,
		OverallPass: result.OverallPass,
		Score:       result.ComplianceScore,
		CreatedAt:   time.Now().UTC(),
		Result:      result,
	}
}

// Config selects and parameterizes a report store driver.
type Config struct {
	Driver string
	Path   string // sqlite: database file
	DSN    string // postgres
}

// Open selects a report store from the configuration.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "memory", "":
		return NewMemory(), nil
	case "sqlite":
		return NewSQLite(cfg.Path)
	case "postgres":
		return NewPostgres(ctx, cfg.DSN)
	default:
		return nil, fmt.Errorf("reports: unknown driver %q", cfg.Driver)
	}
}
