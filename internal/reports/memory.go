package reports

import (
	"context"
	"sync"

	"photocore/pkg/domain"
)

// Memory implements Store in process memory.
type Memory struct {
	mu      sync.RWMutex
	records []Record
	closed  bool
}

// NewMemory returns an empty in-memory report store.
func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Record(ctx context.Context, result domain.ComplianceResult) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return Record{}, ErrClosed
	}
	rec := newRecord(result)
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *Memory) Recent(ctx context.Context, limit int) ([]Record, error) {
	return m.query(func(Record) bool { return true }, limit)
}

func (m *Memory) ByFormat(ctx context.Context, formatID string, limit int) ([]Record, error) {
	return m.query(func(r Record) bool { return r.FormatID == formatID }, limit)
}

func (m *Memory) PassRate(ctx context.Context, formatID string) (float64, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, 0, ErrClosed
	}
	total, passed := 0, 0
	for _, rec := range m.records {
		if rec.FormatID != formatID {
			continue
		}
		total++
		if rec.OverallPass {
			passed++
		}
	}
	if total == 0 {
		return 0, 0, nil
	}
	return float64(passed) / float64(total), total, nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// query walks records newest first.
func (m *Memory) query(keep func(Record) bool, limit int) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	var out []Record
	for i := len(m.records) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if keep(m.records[i]) {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}
