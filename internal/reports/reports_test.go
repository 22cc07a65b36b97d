package reports

import (
	"context"
	"path/filepath"
	"testing"

	"photocore/pkg/domain"
)

func result(formatID string, pass bool, score float64) domain.ComplianceResult {
	return domain.ComplianceResult{
		FormatID:        formatID,
		OverallPass:     pass,
		ComplianceScore: score,
		Issues: []domain.ValidationIssue{
			{Category: domain.CategoryQuality, Severity: domain.SeverityMinor, Message: "sample"},
		},
	}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqliteStore, err := NewSQLite(filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("sqlite store: %v", err)
	}
	return map[string]Store{
		"memory": NewMemory(),
		"sqlite": sqliteStore,
	}
}

func TestRecordAndQuery(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = store.Close() }()

			if _, err := store.Record(ctx, result("us-visa", true, 100)); err != nil {
				t.Fatalf("record: %v", err)
			}
			if _, err := store.Record(ctx, result("us-visa", false, 62.5)); err != nil {
				t.Fatalf("record: %v", err)
			}
			if _, err := store.Record(ctx, result("uk-passport", true, 95)); err != nil {
				t.Fatalf("record: %v", err)
			}

			recent, err := store.Recent(ctx, 10)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(recent) != 3 {
				t.Fatalf("recent = %d records, want 3", len(recent))
			}

			visa, err := store.ByFormat(ctx, "us-visa", 10)
			if err != nil {
				t.Fatalf("by format: %v", err)
			}
			if len(visa) != 2 {
				t.Fatalf("us-visa records = %d, want 2", len(visa))
			}
			for _, rec := range visa {
				if rec.FormatID != "us-visa" {
					t.Fatalf("record for wrong format: %+v", rec)
				}
				if rec.ID == "" || rec.CreatedAt.IsZero() {
					t.Fatalf("record missing identity: %+v", rec)
				}
				if len(rec.Result.Issues) != 1 {
					t.Fatalf("payload lost issues: %+v", rec.Result)
				}
			}

			rate, total, err := store.PassRate(ctx, "us-visa")
			if err != nil {
				t.Fatalf("pass rate: %v", err)
			}
			if total != 2 || rate != 0.5 {
				t.Fatalf("pass rate = %v over %d, want 0.5 over 2", rate, total)
			}

			if _, total, _ := store.PassRate(ctx, "unknown"); total != 0 {
				t.Fatalf("unknown format total = %d, want 0", total)
			}
		})
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	ctx := context.Background()
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			defer func() { _ = store.Close() }()
			for i := 0; i < 5; i++ {
				if _, err := store.Record(ctx, result("fmt", true, 90)); err != nil {
					t.Fatalf("record: %v", err)
				}
			}
			recent, err := store.Recent(ctx, 2)
			if err != nil {
				t.Fatalf("recent: %v", err)
			}
			if len(recent) != 2 {
				t.Fatalf("recent = %d, want 2", len(recent))
			}
		})
	}
}

func TestMemoryClosedStoreErrors(t *testing.T) {
	ctx := context.Background()
	store := NewMemory()
	_ = store.Close()
	if _, err := store.Record(ctx, result("x", true, 1)); err != ErrClosed {
		t.Fatalf("record after close = %v, want ErrClosed", err)
	}
	if _, err := store.Recent(ctx, 1); err != ErrClosed {
		t.Fatalf("recent after close = %v, want ErrClosed", err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()
	mem, err := Open(ctx, Config{Driver: "memory"})
	if err != nil {
		t.Fatalf("open memory: %v", err)
	}
	_ = mem.Close()

	sqliteStore, err := Open(ctx, Config{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "r.db"),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	_ = sqliteStore.Close()

	if _, err := Open(ctx, Config{Driver: "csv"}); err == nil {
		t.Fatal("unknown driver should error")
	}
}
