package formats

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"

	"photocore/internal/logging"
	"photocore/pkg/domain"
)

// Snapshot is an immutable view of all resolved formats produced by one load.
// Readers that captured a snapshot keep seeing it even while the store swaps
// in a newer one.
type Snapshot struct {
	formats  map[string]domain.FormatRule
	ids      []string
	aliases  map[string]string
	loadedAt time.Time
	skipped  []error
}

// Get returns the resolved rule for the given identifier. The identifier may
// be the canonical format_id or any recognized spelling of the display name.
func (s *Snapshot) Get(id string) (domain.FormatRule, bool) {
	if rule, ok := s.formats[id]; ok {
		return rule, true
	}
	if canonical, ok := s.aliases[normalizeKey(id)]; ok {
		rule, ok := s.formats[canonical]
		return rule, ok
	}
	return domain.FormatRule{}, false
}

// IDs returns all format identifiers in ascending order.
func (s *Snapshot) IDs() []string {
	return append([]string(nil), s.ids...)
}

// Len returns the number of resolved formats.
func (s *Snapshot) Len() int { return len(s.formats) }

// LoadedAt reports when this snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Skipped returns the per-file errors for documents that were present on
// disk but could not be parsed during the load that built this snapshot.
func (s *Snapshot) Skipped() []error { return append([]error(nil), s.skipped...) }

// SkippedError folds the skipped-document errors into a single error, or nil
// when every document on disk parsed cleanly.
func (s *Snapshot) SkippedError() error { return multierr.Combine(s.skipped...) }

// Each calls fn for every resolved format in ascending id order.
func (s *Snapshot) Each(fn func(domain.FormatRule)) {
	for _, id := range s.ids {
		fn(s.formats[id])
	}
}

// Store owns the current snapshot and knows how to rebuild it from its
// configured directories. Loads are all-or-nothing with respect to the
// served snapshot: a failed load leaves the previous one active.
type Store struct {
	dirs    []string
	current atomic.Pointer[Snapshot]
	logger  logging.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for per-file load diagnostics.
func WithLogger(l logging.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// NewStore creates a store reading format documents from the given
// directories. The store starts with an empty snapshot until Load succeeds.
func NewStore(dirs []string, opts ...Option) *Store {
	s := &Store{dirs: append([]string(nil), dirs...), logger: logging.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(&Snapshot{
		formats: map[string]domain.FormatRule{},
		aliases: map[string]string{},
	})
	return s
}

// Snapshot returns the currently served snapshot.
func (s *Store) Snapshot() *Snapshot { return s.current.Load() }

// Get looks up a format in the current snapshot.
func (s *Store) Get(id string) (domain.FormatRule, bool) { return s.Snapshot().Get(id) }

// IDs lists the format identifiers of the current snapshot.
func (s *Store) IDs() []string { return s.Snapshot().IDs() }

// Directories returns the directories the store scans.
func (s *Store) Directories() []string { return append([]string(nil), s.dirs...) }

// Load rescans the configured directories, resolves inheritance and swaps in
// a fresh snapshot. Malformed documents are skipped and logged; inheritance
// failures abort the load and keep the previous snapshot serving.
func (s *Store) Load() (*Snapshot, error) {
	docs := make(map[string]Document)
	var skipped []error

	for _, dir := range s.dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				s.logger.Warn("format directory missing", "dir", dir)
				continue
			}
			return nil, &domain.LoadError{Path: dir, Err: err}
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			path := filepath.Join(dir, entry.Name())
			data, err := os.ReadFile(path)
			if err != nil {
				skipped = append(skipped, &domain.LoadError{Path: path, Err: err})
				s.logger.Warn("skipping unreadable format document", "path", path, "error", err)
				continue
			}
			doc, err := ParseDocument(data)
			if err != nil {
				skipped = append(skipped, &domain.LoadError{Path: path, Err: err})
				s.logger.Warn("skipping malformed format document", "path", path, "error", err)
				continue
			}
			if _, dup := docs[doc.FormatID]; dup {
				skipped = append(skipped, &domain.LoadError{Path: path, Err: errDuplicate(doc.FormatID)})
				s.logger.Warn("skipping duplicate format document", "path", path, "format_id", doc.FormatID)
				continue
			}
			docs[doc.FormatID] = doc
		}
	}

	rules, err := Resolve(docs)
	if err != nil {
		return nil, err
	}

	snap := buildSnapshot(rules, skipped)
	s.current.Store(snap)
	s.logger.Info("format snapshot loaded", "formats", snap.Len(), "skipped", len(skipped))
	return snap, nil
}

func buildSnapshot(rules map[string]domain.FormatRule, skipped []error) *Snapshot {
	ids := make([]string, 0, len(rules))
	aliases := make(map[string]string, len(rules)*2)
	for id, rule := range rules {
		ids = append(ids, id)
		aliases[normalizeKey(id)] = id
		if rule.DisplayName != "" {
			aliases[normalizeKey(rule.DisplayName)] = id
		}
	}
	sort.Strings(ids)
	return &Snapshot{
		formats:  rules,
		ids:      ids,
		aliases:  aliases,
		loadedAt: time.Now().UTC(),
		skipped:  skipped,
	}
}

type errDuplicate string

func (e errDuplicate) Error() string { return "duplicate format_id " + string(e) }

// normalizeKey folds a human spelling of a format name to a canonical lookup
// key: lower case with runs of spaces, underscores and dots collapsed to a
// single hyphen.
func normalizeKey(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	pendingSep := false
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch r {
		case ' ', '_', '.', '-':
			pendingSep = b.Len() > 0
		default:
			if pendingSep {
				b.WriteByte('-')
				pendingSep = false
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}
