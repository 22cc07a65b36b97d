package archive

import (
	"context"
	"fmt"
)

// Config selects and parameterizes an archive driver.
type Config struct {
	Driver string
	Root   string // fs: base directory
	Bucket string // s3
	Prefix string // s3: optional key prefix
}

// Open selects an archive driver from the configuration.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case DriverFilesystem, "":
		return NewFilesystem(cfg.Root)
	case DriverS3:
		return NewS3(ctx, S3Config{Bucket: cfg.Bucket, Prefix: cfg.Prefix})
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("archive: unknown driver %q", cfg.Driver)
	}
}
