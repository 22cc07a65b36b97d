package domain

import "fmt"

// RuleKind is the evaluation strategy of a catalog rule, inferred once from
// the shape of the rule's parameters when the catalog is loaded and stored on
// the definition so evaluation never re-infers it.
type RuleKind string

// Closed set of rule kinds.
const (
	// RuleNotAllowed prohibits a feature: the rule passes while the
	// feature's detection confidence stays below the detection threshold.
	RuleNotAllowed RuleKind = "not_allowed"
	// RuleThreshold compares a measurement against a single bound.
	RuleThreshold RuleKind = "threshold"
	// RuleRange requires a measurement to fall inside [Min, Max].
	RuleRange RuleKind = "range"
)

// ThresholdDirection states which side of a threshold passes.
type ThresholdDirection string

// Threshold directions.
const (
	// AtLeast passes when measured >= threshold.
	AtLeast ThresholdDirection = "at_least"
	// AtMost passes when measured <= threshold.
	AtMost ThresholdDirection = "at_most"
)

// RuleDefinition is one atomic, individually identified compliance check.
// Definitions are immutable once loaded; jurisdiction variations produce
// derived definitions rather than mutating these.
type RuleDefinition struct {
	RuleID      string   `json:"rule_id"`
	Name        string   `json:"name"`
	Path        string   `json:"path"`
	Kind        RuleKind `json:"kind"`
	Severity    Severity `json:"severity"`
	Regulation  string   `json:"regulation"`
	Description string   `json:"description"`

	// DetectionThreshold applies to RuleNotAllowed: confidences at or above
	// it count as the prohibited feature being present.
	DetectionThreshold float64 `json:"detection_threshold,omitempty"`

	// Threshold and Direction apply to RuleThreshold.
	Threshold float64            `json:"threshold,omitempty"`
	Direction ThresholdDirection `json:"direction,omitempty"`

	// Min and Max apply to RuleRange.
	Min float64 `json:"min,omitempty"`
	Max float64 `json:"max,omitempty"`

	// Parameters preserves the raw parameter mapping the definition was
	// built from so variation overlays can rewrite individual keys.
	Parameters map[string]any `json:"parameters,omitempty"`
}

// RequiredValue renders the passing condition in human-readable form.
func (r RuleDefinition) RequiredValue() string {
	switch r.Kind {
	case RuleNotAllowed:
		return fmt.Sprintf("confidence below %.2f", r.DetectionThreshold)
	case RuleThreshold:
		if r.Direction == AtMost {
			return fmt.Sprintf("at most %.2f", r.Threshold)
		}
		return fmt.Sprintf("at least %.2f", r.Threshold)
	case RuleRange:
		return fmt.Sprintf("between %.2f and %.2f", r.Min, r.Max)
	}
	return ""
}

// RuleResult reports the outcome of evaluating one rule against one measured
// value. Results are owned by the caller and never mutated after creation.
type RuleResult struct {
	RuleID              string   `json:"rule_id"`
	Passes              bool     `json:"passes"`
	MeasuredValue       float64  `json:"measured_value"`
	RequiredValue       string   `json:"required_value"`
	Confidence          float64  `json:"confidence"`
	Severity            Severity `json:"severity"`
	RegulationReference string   `json:"regulation_reference"`
	Description         string   `json:"description"`
	Suggestion          string   `json:"suggestion,omitempty"`
}
