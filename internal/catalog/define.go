package catalog

import (
	"fmt"

	"photocore/pkg/domain"
)

// Define builds a typed definition from a raw parameter map, the same way
// the catalog loader does. Callers use it to overlay per-format parameter
// overrides on top of a catalog rule.
func Define(path, name string, params map[string]any) (domain.RuleDefinition, error) {
	return defineRule(path, name, params)
}

// defineRule turns a raw parameter map into a typed definition, inferring
// the evaluation kind from which parameters are present: allowed=false with
// a detection threshold marks a not-allowed condition, both bounds mark a
// range, a single bound marks a one-sided threshold.
func defineRule(path, name string, params map[string]any) (domain.RuleDefinition, error) {
	def := domain.RuleDefinition{
		Path:        path,
		Name:        name,
		RuleID:      stringParam(params, "rule_id"),
		Severity:    domain.Severity(stringParamDefault(params, "severity", string(domain.SeverityMinor))),
		Regulation:  stringParam(params, "regulation"),
		Description: stringParam(params, "description"),
		Parameters:  cloneParams(params),
	}
	switch def.Severity {
	case domain.SeverityCritical, domain.SeverityMajor, domain.SeverityMinor:
	default:
		return domain.RuleDefinition{}, fmt.Errorf("unknown severity %q", def.Severity)
	}

	allowed, hasAllowed := boolParam(params, "allowed")
	minVal, hasMin := floatParam(params, "min_value")
	maxVal, hasMax := floatParam(params, "max_value")

	switch {
	case hasAllowed && !allowed:
		def.Kind = domain.RuleNotAllowed
		if th, ok := floatParam(params, "detection_threshold"); ok {
			def.DetectionThreshold = th
		} else {
			def.DetectionThreshold = 0.5
		}
	case hasAllowed && allowed:
		return domain.RuleDefinition{}, fmt.Errorf("allowed=true carries no evaluable condition")
	case hasMin && hasMax:
		if minVal > maxVal {
			return domain.RuleDefinition{}, fmt.Errorf("min_value %v exceeds max_value %v", minVal, maxVal)
		}
		def.Kind = domain.RuleRange
		def.Min = minVal
		def.Max = maxVal
	case hasMin:
		def.Kind = domain.RuleThreshold
		def.Direction = domain.AtLeast
		def.Threshold = minVal
	case hasMax:
		def.Kind = domain.RuleThreshold
		def.Direction = domain.AtMost
		def.Threshold = maxVal
	default:
		return domain.RuleDefinition{}, fmt.Errorf("cannot infer evaluation kind from parameters")
	}
	return def, nil
}

func stringParam(params map[string]any, key string) string {
	if v, ok := params[key].(string); ok {
		return v
	}
	return ""
}

func stringParamDefault(params map[string]any, key, fallback string) string {
	if v := stringParam(params, key); v != "" {
		return v
	}
	return fallback
}

func boolParam(params map[string]any, key string) (bool, bool) {
	v, ok := params[key].(bool)
	return v, ok
}

func floatParam(params map[string]any, key string) (float64, bool) {
	switch v := params[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	}
	return 0, false
}

func cloneParams(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
