package domain

import (
	"fmt"
	"strings"
)

// LoadError reports a single malformed format or catalog document. It is
// non-fatal to an overall load: the document is skipped and the error
// surfaced for operator visibility.
type LoadError struct {
	Path string
	Err  error
}

func (e LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Path, e.Err)
}

func (e LoadError) Unwrap() error { return e.Err }

// CircularInheritanceError reports an inheritance cycle between format
// documents. It is fatal to the load attempt that discovered it.
type CircularInheritanceError struct {
	Cycle []string
}

func (e CircularInheritanceError) Error() string {
	return fmt.Sprintf("circular format inheritance: %s", strings.Join(e.Cycle, " -> "))
}

// MissingParentError reports a format document inheriting from a format that
// is not present in the loaded set.
type MissingParentError struct {
	FormatID string
	Parent   string
}

func (e MissingParentError) Error() string {
	return fmt.Sprintf("format %s inherits from unknown format %s", e.FormatID, e.Parent)
}

// UnknownFormatError is returned when a caller names a format ID that the
// current snapshot does not contain.
type UnknownFormatError struct {
	FormatID string
}

func (e UnknownFormatError) Error() string {
	return fmt.Sprintf("unknown format %q", e.FormatID)
}

// ReloadError wraps any failure recorded during a hot-reload attempt. The
// previously resolved snapshot stays live when a reload fails.
type ReloadError struct {
	Err error
}

func (e ReloadError) Error() string {
	return fmt.Sprintf("configuration reload failed: %v", e.Err)
}

func (e ReloadError) Unwrap() error { return e.Err }
