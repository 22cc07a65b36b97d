package archive

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Memory implements Store in process memory. Intended for tests.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data     []byte
	modified time.Time
}

// NewMemory returns an empty in-memory archive.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]memoryEntry)}
}

// Driver names the backend.
func (m *Memory) Driver() Driver { return DriverMemory }

func (m *Memory) Put(ctx context.Context, key string, r io.Reader) (Entry, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return Entry{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return Entry{}, err
	}
	now := time.Now().UTC()
	m.mu.Lock()
	m.entries[clean] = memoryEntry{data: data, modified: now}
	m.mu.Unlock()
	return Entry{Key: clean, Size: int64(len(data)), LastModified: now}, nil
}

func (m *Memory) Get(ctx context.Context, key string) (Entry, io.ReadCloser, error) {
	clean, err := sanitizeKey(key)
	if err != nil {
		return Entry{}, nil, err
	}
	m.mu.RLock()
	entry, ok := m.entries[clean]
	m.mu.RUnlock()
	if !ok {
		return Entry{}, nil, ErrNotFound
	}
	info := Entry{Key: clean, Size: int64(len(entry.data)), LastModified: entry.modified}
	return info, io.NopCloser(bytes.NewReader(entry.data)), nil
}

func (m *Memory) List(ctx context.Context, prefix string) ([]Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Entry
	for key, entry := range m.entries {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		out = append(out, Entry{Key: key, Size: int64(len(entry.data)), LastModified: entry.modified})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, prefix string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for key := range m.entries {
		if prefix != "" && !strings.HasPrefix(key, prefix) {
			continue
		}
		delete(m.entries, key)
		removed++
	}
	return removed, nil
}
