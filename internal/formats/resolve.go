package formats

import (
	"sort"

	"go.uber.org/multierr"

	"photocore/pkg/domain"
)

type resolveMark int

const (
	markUnvisited resolveMark = iota
	markVisiting
	markResolved
	markFailed
)

// Resolve flattens the inheritance graph of the given documents into
// self-contained format rules. Formats that reference a missing parent, or
// that participate in an inheritance cycle, are excluded from the result and
// reported through the returned error; formats outside the broken subgraph
// resolve normally.
func Resolve(docs map[string]Document) (map[string]domain.FormatRule, error) {
	marks := make(map[string]resolveMark, len(docs))
	merged := make(map[string]Document, len(docs))
	var errs error

	var visit func(id string, chain []string) bool
	visit = func(id string, chain []string) bool {
		switch marks[id] {
		case markResolved:
			return true
		case markFailed:
			return false
		case markVisiting:
			errs = multierr.Append(errs, &domain.CircularInheritanceError{Cycle: cyclePath(chain, id)})
			marks[id] = markFailed
			return false
		}

		doc := docs[id]
		if doc.InheritsFrom == "" {
			marks[id] = markResolved
			merged[id] = doc
			return true
		}
		parent, ok := docs[doc.InheritsFrom]
		if !ok {
			errs = multierr.Append(errs, &domain.MissingParentError{FormatID: id, Parent: doc.InheritsFrom})
			marks[id] = markFailed
			return false
		}

		marks[id] = markVisiting
		if !visit(parent.FormatID, append(chain, id)) {
			marks[id] = markFailed
			return false
		}
		marks[id] = markResolved
		merged[id] = mergeDocuments(merged[parent.FormatID], doc)
		return true
	}

	// Deterministic order keeps error aggregation stable across loads.
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		visit(id, nil)
	}

	rules := make(map[string]domain.FormatRule, len(merged))
	for id, doc := range merged {
		rules[id] = doc.Materialize()
	}
	return rules, errs
}

// cyclePath trims the visit chain to the cycle itself and closes it, so the
// error reads like a -> b -> a.
func cyclePath(chain []string, repeat string) []string {
	start := 0
	for i, id := range chain {
		if id == repeat {
			start = i
			break
		}
	}
	cycle := append([]string(nil), chain[start:]...)
	return append(cycle, repeat)
}
