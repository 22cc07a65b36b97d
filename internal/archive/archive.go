// Package archive stores configuration backups. A backup is a set of entries
// under a common prefix, mirroring the relative layout of the configuration
// directories at the time it was taken. Drivers cover the local filesystem,
// an S3-compatible bucket and an in-memory store for tests.
package archive

import (
	"context"
	"errors"
	"io"
	"time"
)

// Driver identifies a concrete archive backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// Entry describes one archived file.
type Entry struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface backup archival runs against. Keys are
// slash-separated relative paths; writing an existing key overwrites it, so
// retaking a backup under the same prefix is idempotent.
type Store interface {
	// Put stores the contents of r at key.
	Put(ctx context.Context, key string, r io.Reader) (Entry, error)
	// Get retrieves an archived file. Missing keys return ErrNotFound.
	Get(ctx context.Context, key string) (Entry, io.ReadCloser, error)
	// List returns entries whose key starts with prefix, ascending by key.
	List(ctx context.Context, prefix string) ([]Entry, error)
	// Delete removes every entry under prefix and reports how many went away.
	Delete(ctx context.Context, prefix string) (int, error)
	// Driver names the configured backend.
	Driver() Driver
}

// ErrNotFound is returned for keys with no archived entry.
var ErrNotFound = errors.New("archive: entry not found")
