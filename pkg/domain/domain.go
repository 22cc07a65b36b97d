// Package domain defines the core value types, rule primitives, and error
// taxonomy used by photocore. It deliberately depends on nothing but the
// standard library so that every layer of the engine (and external
// consumers) can share these types without pulling in infrastructure.
package domain

// Severity captures how serious a failed check is.
type Severity string

// Rule and issue severities, ordered from most to least serious. A single
// critical failure forces an overall validation failure regardless of the
// aggregate compliance score.
const (
	// SeverityCritical marks defects that make a photo unusable.
	SeverityCritical Severity = "critical"
	// SeverityMajor marks defects that usually cause rejection.
	SeverityMajor Severity = "major"
	SeverityMinor Severity = "minor"
)

// Category identifies the validation area an issue belongs to.
type Category string

// Validation categories mirrored in per-category compliance results.
const (
	CategoryDimensions Category = "dimensions"
	CategoryFace       Category = "face"
	CategoryBackground Category = "background"
	CategoryQuality    Category = "quality"
	// CategoryRules covers catalog-rule evaluations (glasses, expression,
	// head covers and similar signals).
	CategoryRules Category = "rules"
)

// Strictness selects how tolerantly a format is validated.
type Strictness string

// Supported validation strictness levels.
const (
	StrictnessRelaxed  Strictness = "relaxed"
	StrictnessStandard Strictness = "standard"
	StrictnessStrict   Strictness = "strict"
)

// ValidationIssue describes one violated requirement in caller-facing form.
type ValidationIssue struct {
	Category    Category `json:"category"`
	Severity    Severity `json:"severity"`
	Message     string   `json:"message"`
	Suggestion  string   `json:"suggestion"`
	AutoFixable bool     `json:"auto_fixable"`
	// RuleReference carries the regulation citation of the violated rule
	// when the issue originates from a catalog rule.
	RuleReference string `json:"rule_reference,omitempty"`
}
