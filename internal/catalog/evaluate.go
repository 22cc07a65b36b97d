package catalog

import (
	"fmt"
	"math"

	"photocore/pkg/domain"
)

// Evaluate resolves the identifier against the catalog, trying the
// category.name path first and the catalog rule id second, and scores the
// measured value. An identifier the catalog does not know produces a failing
// result with zero confidence rather than an error, so one stale reference
// cannot abort a whole validation run.
func (c *Catalog) Evaluate(identifier string, measured float64) domain.RuleResult {
	def, ok := c.ByPath(identifier)
	if !ok {
		def, ok = c.ByID(identifier)
	}
	if !ok {
		return domain.RuleResult{
			RuleID:      identifier,
			Passes:      false,
			Confidence:  0,
			Severity:    domain.SeverityMinor,
			Description: fmt.Sprintf("rule %q not found in catalog version %s", identifier, c.version),
			Suggestion:  "verify the rule reference against the active catalog",
		}
	}
	return EvaluateRule(def, measured)
}

// EvaluateRule scores a measured value against a single definition.
func EvaluateRule(def domain.RuleDefinition, measured float64) domain.RuleResult {
	res := domain.RuleResult{
		RuleID:              def.RuleID,
		MeasuredValue:       measured,
		RequiredValue:       def.RequiredValue(),
		Severity:            def.Severity,
		RegulationReference: def.Regulation,
		Description:         def.Description,
	}

	switch def.Kind {
	case domain.RuleNotAllowed:
		res.Passes = measured < def.DetectionThreshold
		res.Confidence = violationConfidence(res.Passes, measured, def.DetectionThreshold, 1-def.DetectionThreshold)
		if !res.Passes {
			res.Suggestion = fmt.Sprintf("%s detected with score %.2f at or above threshold %.2f",
				def.Name, measured, def.DetectionThreshold)
		}
	case domain.RuleThreshold:
		if def.Direction == domain.AtLeast {
			res.Passes = measured >= def.Threshold
			if !res.Passes {
				res.Suggestion = fmt.Sprintf("%s value %.2f below required minimum %.2f",
					def.Name, measured, def.Threshold)
			}
		} else {
			res.Passes = measured <= def.Threshold
			if !res.Passes {
				res.Suggestion = fmt.Sprintf("%s value %.2f above allowed maximum %.2f",
					def.Name, measured, def.Threshold)
			}
		}
		res.Confidence = violationConfidence(res.Passes, measured, def.Threshold, math.Abs(def.Threshold))
	case domain.RuleRange:
		res.Passes = measured >= def.Min && measured <= def.Max
		bound := nearestBound(measured, def.Min, def.Max)
		res.Confidence = violationConfidence(res.Passes, measured, bound, math.Abs(bound))
		if measured < def.Min {
			res.Suggestion = fmt.Sprintf("%s value %.2f below minimum %.2f", def.Name, measured, def.Min)
		} else if measured > def.Max {
			res.Suggestion = fmt.Sprintf("%s value %.2f above maximum %.2f", def.Name, measured, def.Max)
		}
	default:
		res.Passes = false
		res.Confidence = 0
		res.Suggestion = fmt.Sprintf("rule %s has no evaluable kind", def.Path)
	}
	return res
}

// violationConfidence reports how certain the verdict is. A passing
// measurement is fully trusted, a failing one loses confidence in
// proportion to how far it overshoots the violated boundary.
func violationConfidence(passes bool, measured, boundary, scale float64) float64 {
	if passes {
		return 1
	}
	if scale < 1e-9 {
		scale = 1
	}
	conf := 1 - math.Abs(measured-boundary)/scale
	return math.Max(conf, 0)
}

func nearestBound(measured, min, max float64) float64 {
	if math.Abs(measured-min) <= math.Abs(measured-max) {
		return min
	}
	return max
}
