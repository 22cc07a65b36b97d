// Package catalog loads the versioned rule catalog and its per-country
// variations, infers each rule's evaluation kind from its parameter shape,
// and evaluates measured values into typed rule results.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"

	"photocore/internal/logging"
	"photocore/pkg/domain"
)

const (
	rulesFile      = "icao_rules.json"
	variationsFile = "country_variations.json"
)

// Catalog is an immutable set of rule definitions. Country variations are
// materialized as derived catalogs at load time; the base catalog is never
// mutated by a variation.
type Catalog struct {
	version string
	updated string
	country string

	rules  []domain.RuleDefinition
	byPath map[string]int
	byID   map[string]int

	variants map[string]*Catalog
}

// Version returns the catalog version string.
func (c *Catalog) Version() string { return c.version }

// LastUpdated returns the catalog's declared last-updated date.
func (c *Catalog) LastUpdated() string { return c.updated }

// Country reports which variation this catalog represents, empty for the
// base catalog.
func (c *Catalog) Country() string { return c.country }

// Len returns the number of rule definitions.
func (c *Catalog) Len() int { return len(c.rules) }

// Rules returns all definitions in ascending path order.
func (c *Catalog) Rules() []domain.RuleDefinition {
	return append([]domain.RuleDefinition(nil), c.rules...)
}

// ByPath looks up a rule by its category.name path.
func (c *Catalog) ByPath(path string) (domain.RuleDefinition, bool) {
	i, ok := c.byPath[path]
	if !ok {
		return domain.RuleDefinition{}, false
	}
	return c.rules[i], true
}

// ByID looks up a rule by its catalog identifier.
func (c *Catalog) ByID(id string) (domain.RuleDefinition, bool) {
	i, ok := c.byID[id]
	if !ok {
		return domain.RuleDefinition{}, false
	}
	return c.rules[i], true
}

// ByCategory returns all rules in the given category, in path order.
func (c *Catalog) ByCategory(category string) []domain.RuleDefinition {
	var out []domain.RuleDefinition
	prefix := category + "."
	for _, rule := range c.rules {
		if strings.HasPrefix(rule.Path, prefix) {
			out = append(out, rule)
		}
	}
	return out
}

// BySeverity returns all rules with the given severity, in path order.
func (c *Catalog) BySeverity(severity domain.Severity) []domain.RuleDefinition {
	var out []domain.RuleDefinition
	for _, rule := range c.rules {
		if rule.Severity == severity {
			out = append(out, rule)
		}
	}
	return out
}

// Variations lists the countries with a derived catalog, sorted.
func (c *Catalog) Variations() []string {
	out := make([]string, 0, len(c.variants))
	for country := range c.variants {
		out = append(out, country)
	}
	sort.Strings(out)
	return out
}

// ForVariation returns the derived catalog for a country. Countries without
// a variation get the base catalog.
func (c *Catalog) ForVariation(country string) *Catalog {
	if v, ok := c.variants[strings.ToUpper(country)]; ok {
		return v
	}
	return c
}

type rulesDocument struct {
	Version     string                               `json:"version"`
	LastUpdated string                               `json:"last_updated"`
	Rules       map[string]map[string]map[string]any `json:"rules"`
}

// Load reads the rule catalog and country variations from dir. A missing
// variations file leaves the base catalog without variants; a missing rules
// file is an error.
func Load(dir string, logger logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	data, err := os.ReadFile(filepath.Join(dir, rulesFile))
	if err != nil {
		return nil, &domain.LoadError{Path: filepath.Join(dir, rulesFile), Err: err}
	}
	var doc rulesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &domain.LoadError{Path: filepath.Join(dir, rulesFile), Err: err}
	}

	base, err := fromDocument(doc)
	if err != nil {
		return nil, err
	}

	varPath := filepath.Join(dir, variationsFile)
	varData, err := os.ReadFile(varPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, &domain.LoadError{Path: varPath, Err: err}
		}
		logger.Info("rule catalog loaded", "version", base.version, "rules", base.Len(), "variations", 0)
		return base, nil
	}
	var variations map[string]map[string]any
	if err := json.Unmarshal(varData, &variations); err != nil {
		return nil, &domain.LoadError{Path: varPath, Err: err}
	}
	if err := base.applyVariations(doc, variations); err != nil {
		return nil, err
	}
	logger.Info("rule catalog loaded",
		"version", base.version, "rules", base.Len(), "variations", len(base.variants))
	return base, nil
}

// New builds a catalog directly from a decoded rules document. Intended for
// embedding and tests.
func New(version, lastUpdated string, rules map[string]map[string]map[string]any) (*Catalog, error) {
	return fromDocument(rulesDocument{Version: version, LastUpdated: lastUpdated, Rules: rules})
}

func fromDocument(doc rulesDocument) (*Catalog, error) {
	c := &Catalog{
		version:  doc.Version,
		updated:  doc.LastUpdated,
		byPath:   make(map[string]int),
		byID:     make(map[string]int),
		variants: make(map[string]*Catalog),
	}

	var errs error
	paths := make([]string, 0, len(doc.Rules)*4)
	defs := make(map[string]domain.RuleDefinition)
	for category, rules := range doc.Rules {
		for name, params := range rules {
			path := category + "." + name
			def, err := defineRule(path, name, params)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("rule %s: %w", path, err))
				continue
			}
			paths = append(paths, path)
			defs[path] = def
		}
	}
	if errs != nil {
		return nil, errs
	}

	sort.Strings(paths)
	c.rules = make([]domain.RuleDefinition, 0, len(paths))
	for i, path := range paths {
		def := defs[path]
		c.rules = append(c.rules, def)
		c.byPath[path] = i
		if def.RuleID != "" {
			c.byID[def.RuleID] = i
		}
	}
	return c, nil
}

// applyVariations materializes one derived catalog per country by applying
// its dotted-path overrides to a deep copy of the rules document.
func (c *Catalog) applyVariations(doc rulesDocument, variations map[string]map[string]any) error {
	var errs error
	for country, overrides := range variations {
		derived := cloneRules(doc.Rules)
		for path, value := range overrides {
			if err := applyOverride(derived, path, value); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("variation %s: %w", country, err))
			}
		}
		variant, err := fromDocument(rulesDocument{
			Version:     doc.Version,
			LastUpdated: doc.LastUpdated,
			Rules:       derived,
		})
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("variation %s: %w", country, err))
			continue
		}
		variant.country = strings.ToUpper(country)
		c.variants[variant.country] = variant
	}
	return errs
}

// applyOverride sets a category.name.parameter path in the rules tree.
func applyOverride(rules map[string]map[string]map[string]any, path string, value any) error {
	parts := strings.Split(path, ".")
	if len(parts) != 3 {
		return fmt.Errorf("override path %q must be category.rule.parameter", path)
	}
	category, ok := rules[parts[0]]
	if !ok {
		return fmt.Errorf("override path %q: unknown category", path)
	}
	rule, ok := category[parts[1]]
	if !ok {
		return fmt.Errorf("override path %q: unknown rule", path)
	}
	rule[parts[2]] = value
	return nil
}

func cloneRules(in map[string]map[string]map[string]any) map[string]map[string]map[string]any {
	out := make(map[string]map[string]map[string]any, len(in))
	for category, rules := range in {
		rc := make(map[string]map[string]any, len(rules))
		for name, params := range rules {
			pc := make(map[string]any, len(params))
			for k, v := range params {
				pc[k] = v
			}
			rc[name] = pc
		}
		out[category] = rc
	}
	return out
}
