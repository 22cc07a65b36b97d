package reload

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"

	"photocore/internal/formats"
)

// IntegrityReport summarizes a read-only scan of the configuration
// directories.
type IntegrityReport struct {
	TotalFiles   int      `json:"total_files"`
	ValidFiles   int      `json:"valid_files"`
	InvalidFiles int      `json:"invalid_files"`
	Errors       []string `json:"errors,omitempty"`
}

// Valid reports whether every file parsed and the inheritance graph is
// sound.
func (r IntegrityReport) Valid() bool { return r.InvalidFiles == 0 && len(r.Errors) == 0 }

// ValidateIntegrity checks every configuration document on disk without
// touching the live snapshot: parse failures, duplicate ids and inheritance
// graph problems are all reported, none applied.
func (m *Manager) ValidateIntegrity() (IntegrityReport, error) {
	report := IntegrityReport{}
	docs := make(map[string]formats.Document)
	var scanErr error

	for _, dir := range m.store.Directories() {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				report.Errors = append(report.Errors, fmt.Sprintf("%s: directory missing", dir))
				continue
			}
			scanErr = multierr.Append(scanErr, err)
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			report.TotalFiles++
			data, err := os.ReadFile(path)
			if err != nil {
				report.InvalidFiles++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			doc, err := formats.ParseDocument(data)
			if err != nil {
				report.InvalidFiles++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", path, err))
				continue
			}
			if _, dup := docs[doc.FormatID]; dup {
				report.InvalidFiles++
				report.Errors = append(report.Errors, fmt.Sprintf("%s: duplicate format_id %s", path, doc.FormatID))
				continue
			}
			docs[doc.FormatID] = doc
			report.ValidFiles++
		}
	}

	if _, err := formats.Resolve(docs); err != nil {
		for _, graphErr := range multierr.Errors(err) {
			report.Errors = append(report.Errors, graphErr.Error())
		}
	}
	return report, scanErr
}
