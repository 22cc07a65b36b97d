// Package formats loads per-format specification documents from disk,
// resolves their inheritance graph into flattened, self-contained rules, and
// serves the result as immutable snapshots behind a single atomic handle.
package formats

import (
	"encoding/json"
	"fmt"

	"photocore/pkg/domain"
)

// Document is the raw, unresolved on-disk form of a format specification.
// Optional sections and fields use pointers so inheritance can distinguish
// "absent, inherit from parent" from an explicit zero value.
type Document struct {
	FormatID             string               `json:"format_id"`
	InheritsFrom         string               `json:"inherits_from,omitempty"`
	DisplayName          *string              `json:"display_name,omitempty"`
	Version              *string              `json:"version,omitempty"`
	Country              *string              `json:"country,omitempty"`
	Authority            *string              `json:"authority,omitempty"`
	RegulationReferences []string             `json:"regulation_references,omitempty"`
	Dimensions           *DimensionsDoc       `json:"dimensions,omitempty"`
	FaceRequirements     *FaceRequirementsDoc `json:"face_requirements,omitempty"`
	Background           *BackgroundDoc       `json:"background,omitempty"`
	QualityThresholds    *QualityDoc          `json:"quality_thresholds,omitempty"`
	ICAORules            domain.ICAOOverrides `json:"icao_rules,omitempty"`
	DetectionCriteria    *DetectionDoc        `json:"detection_criteria,omitempty"`
	ValidationStrictness *string              `json:"validation_strictness,omitempty"`
	AutoFixEnabled       *bool                `json:"auto_fix_enabled,omitempty"`
}

// DimensionsDoc is the unresolved dimensions section.
type DimensionsDoc struct {
	Width       *int     `json:"width,omitempty"`
	Height      *int     `json:"height,omitempty"`
	Unit        *string  `json:"unit,omitempty"`
	AspectRatio *float64 `json:"aspect_ratio,omitempty"`
	Tolerance   *float64 `json:"tolerance,omitempty"`
}

// FaceRequirementsDoc is the unresolved face requirements section.
type FaceRequirementsDoc struct {
	HeightRatio        *domain.FloatRange `json:"height_ratio,omitempty"`
	EyeHeightRatio     *domain.FloatRange `json:"eye_height_ratio,omitempty"`
	CenteringTolerance *float64           `json:"centering_tolerance,omitempty"`
	MaxRotation        *float64           `json:"max_rotation,omitempty"`
}

// BackgroundDoc is the unresolved background section.
type BackgroundDoc struct {
	Color               *string  `json:"color,omitempty"`
	RGB                 *[3]int  `json:"rgb_values,omitempty"`
	Tolerance           *float64 `json:"tolerance,omitempty"`
	UniformityThreshold *float64 `json:"uniformity_threshold,omitempty"`
}

// QualityDoc is the unresolved quality thresholds section.
type QualityDoc struct {
	MinBrightness   *float64 `json:"min_brightness,omitempty"`
	MaxBrightness   *float64 `json:"max_brightness,omitempty"`
	MinSharpness    *float64 `json:"min_sharpness,omitempty"`
	MaxBlurVariance *float64 `json:"max_blur_variance,omitempty"`
}

// DetectionDoc is the unresolved detection criteria section.
type DetectionDoc struct {
	MinResolution     *int     `json:"min_resolution,omitempty"`
	TargetAspectRatio *float64 `json:"target_aspect_ratio,omitempty"`
	Tolerance         *float64 `json:"tolerance,omitempty"`
}

// ParseDocument decodes a single format document and validates the minimum
// it needs to participate in resolution.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, err
	}
	if doc.FormatID == "" {
		return Document{}, fmt.Errorf("missing format_id")
	}
	if doc.InheritsFrom == doc.FormatID {
		return Document{}, fmt.Errorf("format %s inherits from itself", doc.FormatID)
	}
	return doc, nil
}

// Materialize turns a fully merged document into the flattened FormatRule
// served to callers, filling defaults for anything still unset.
func (d Document) Materialize() domain.FormatRule {
	rule := domain.FormatRule{
		FormatID:             d.FormatID,
		DisplayName:          stringOr(d.DisplayName, d.FormatID),
		Version:              stringOr(d.Version, "1.0"),
		Country:              stringOr(d.Country, ""),
		Authority:            stringOr(d.Authority, ""),
		RegulationReferences: append([]string(nil), d.RegulationReferences...),
		ValidationStrictness: domain.Strictness(stringOr(d.ValidationStrictness, string(domain.StrictnessStandard))),
		AutoFixEnabled:       boolOr(d.AutoFixEnabled, false),
	}

	// Absent sections still materialize with defaults so every resolved
	// rule is fully populated.
	dims := d.Dimensions
	if dims == nil {
		dims = &DimensionsDoc{}
	}
	rule.Dimensions = domain.Dimensions{
		Width:       intOr(dims.Width, 0),
		Height:      intOr(dims.Height, 0),
		Unit:        stringOr(dims.Unit, "pixels"),
		AspectRatio: floatOr(dims.AspectRatio, 0),
		Tolerance:   floatOr(dims.Tolerance, defaultDimensionTolerance),
	}
	if rule.Dimensions.AspectRatio == 0 && rule.Dimensions.Height > 0 {
		rule.Dimensions.AspectRatio = float64(rule.Dimensions.Width) / float64(rule.Dimensions.Height)
	}

	face := d.FaceRequirements
	if face == nil {
		face = &FaceRequirementsDoc{}
	}
	rule.FaceRequirements = domain.FaceRequirements{
		HeightRatio:        rangeOr(face.HeightRatio, domain.FloatRange{Min: 0.50, Max: 0.80}),
		EyeHeightRatio:     rangeOr(face.EyeHeightRatio, domain.FloatRange{Min: 0.40, Max: 0.70}),
		CenteringTolerance: floatOr(face.CenteringTolerance, 0.05),
		MaxRotation:        floatOr(face.MaxRotation, 5.0),
	}

	bg := d.Background
	if bg == nil {
		bg = &BackgroundDoc{}
	}
	rule.Background = domain.Background{
		Color:               stringOr(bg.Color, "white"),
		Tolerance:           floatOr(bg.Tolerance, 20),
		UniformityThreshold: floatOr(bg.UniformityThreshold, 0.85),
	}
	if bg.RGB != nil {
		rule.Background.RGB = *bg.RGB
	} else {
		rule.Background.RGB = [3]int{255, 255, 255}
	}

	quality := d.QualityThresholds
	if quality == nil {
		quality = &QualityDoc{}
	}
	rule.QualityThresholds = domain.QualityThresholds{
		MinBrightness:   floatOr(quality.MinBrightness, 0),
		MaxBrightness:   floatOr(quality.MaxBrightness, 255),
		MinSharpness:    floatOr(quality.MinSharpness, 0),
		MaxBlurVariance: floatOr(quality.MaxBlurVariance, 0),
	}
	if len(d.ICAORules) > 0 {
		rule.ICAORules = cloneOverrides(d.ICAORules)
	}
	if d.DetectionCriteria != nil {
		rule.DetectionCriteria = domain.DetectionCriteria{
			MinResolution:     intOr(d.DetectionCriteria.MinResolution, 0),
			TargetAspectRatio: floatOr(d.DetectionCriteria.TargetAspectRatio, rule.Dimensions.AspectRatio),
			Tolerance:         floatOr(d.DetectionCriteria.Tolerance, defaultAspectTolerance),
		}
	} else if rule.Dimensions.AspectRatio > 0 {
		// Formats without explicit criteria are still detectable from their
		// declared geometry.
		rule.DetectionCriteria = domain.DetectionCriteria{
			TargetAspectRatio: rule.Dimensions.AspectRatio,
			Tolerance:         defaultAspectTolerance,
		}
	}
	return rule
}

const (
	defaultDimensionTolerance = 0.05
	defaultAspectTolerance    = 0.05
)

func stringOr(p *string, fallback string) string {
	if p != nil {
		return *p
	}
	return fallback
}

func intOr(p *int, fallback int) int {
	if p != nil {
		return *p
	}
	return fallback
}

func floatOr(p *float64, fallback float64) float64 {
	if p != nil {
		return *p
	}
	return fallback
}

func boolOr(p *bool, fallback bool) bool {
	if p != nil {
		return *p
	}
	return fallback
}

func rangeOr(p *domain.FloatRange, fallback domain.FloatRange) domain.FloatRange {
	if p != nil {
		return *p
	}
	return fallback
}

func cloneOverrides(in domain.ICAOOverrides) domain.ICAOOverrides {
	out := make(domain.ICAOOverrides, len(in))
	for category, rules := range in {
		ruleCopy := make(map[string]map[string]any, len(rules))
		for name, params := range rules {
			paramCopy := make(map[string]any, len(params))
			for k, v := range params {
				paramCopy[k] = v
			}
			ruleCopy[name] = paramCopy
		}
		out[category] = ruleCopy
	}
	return out
}
