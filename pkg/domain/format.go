package domain

import (
	"encoding/json"
	"fmt"
)

// FloatRange is an inclusive [Min, Max] interval. On disk it is encoded as a
// two-element JSON array, matching the format documents' `[min, max]` shape.
type FloatRange struct {
	Min float64
	Max float64
}

// Contains reports whether v lies inside the interval.
func (r FloatRange) Contains(v float64) bool {
	return v >= r.Min && v <= r.Max
}

// MarshalJSON encodes the interval as [min, max].
func (r FloatRange) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{r.Min, r.Max})
}

// UnmarshalJSON accepts either the canonical [min, max] array or an object
// with min/max keys.
func (r *FloatRange) UnmarshalJSON(data []byte) error {
	var arr [2]float64
	if err := json.Unmarshal(data, &arr); err == nil {
		r.Min, r.Max = arr[0], arr[1]
		return nil
	}
	var obj struct {
		Min float64 `json:"min"`
		Max float64 `json:"max"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("range must be [min, max] or {min, max}: %w", err)
	}
	r.Min, r.Max = obj.Min, obj.Max
	return nil
}

// Dimensions are the required pixel geometry of a format.
type Dimensions struct {
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	Unit        string  `json:"unit"`
	AspectRatio float64 `json:"aspect_ratio"`
	// Tolerance is the permitted relative deviation of measured over
	// required width/height, e.g. 0.05 for five percent.
	Tolerance float64 `json:"tolerance"`
}

// FaceRequirements constrain head size and placement within the frame.
type FaceRequirements struct {
	HeightRatio    FloatRange `json:"height_ratio"`
	EyeHeightRatio FloatRange `json:"eye_height_ratio"`
	// CenteringTolerance is the maximum offset of the face center from the
	// frame center, as a fraction of the frame size per axis.
	CenteringTolerance float64 `json:"centering_tolerance"`
	// MaxRotation is the largest acceptable head tilt in degrees.
	MaxRotation float64 `json:"max_rotation"`
}

// Background describes the required backdrop.
type Background struct {
	Color     string  `json:"color"`
	RGB       [3]int  `json:"rgb_values"`
	Tolerance float64 `json:"tolerance"`
	// UniformityThreshold is the minimum acceptable uniformity score.
	UniformityThreshold float64 `json:"uniformity_threshold"`
}

// QualityThresholds bound the photographic quality metrics.
type QualityThresholds struct {
	MinBrightness   float64 `json:"min_brightness"`
	MaxBrightness   float64 `json:"max_brightness"`
	MinSharpness    float64 `json:"min_sharpness"`
	MaxBlurVariance float64 `json:"max_blur_variance"`
}

// DetectionCriteria feed the format auto-detector.
type DetectionCriteria struct {
	MinResolution     int     `json:"min_resolution"`
	TargetAspectRatio float64 `json:"target_aspect_ratio"`
	Tolerance         float64 `json:"tolerance"`
}

// ICAOOverrides maps category -> rule name -> parameter overrides applied on
// top of the rule catalog for a specific format.
type ICAOOverrides map[string]map[string]map[string]any

// FormatRule is the fully resolved specification for one photo format. Every
// FormatRule held by a live snapshot is self-contained: inheritance has been
// flattened and no reference to a parent format remains.
type FormatRule struct {
	FormatID             string            `json:"format_id"`
	DisplayName          string            `json:"display_name"`
	Version              string            `json:"version"`
	Country              string            `json:"country"`
	Authority            string            `json:"authority"`
	RegulationReferences []string          `json:"regulation_references,omitempty"`
	Dimensions           Dimensions        `json:"dimensions"`
	FaceRequirements     FaceRequirements  `json:"face_requirements"`
	Background           Background        `json:"background"`
	QualityThresholds    QualityThresholds `json:"quality_thresholds"`
	ICAORules            ICAOOverrides     `json:"icao_rules,omitempty"`
	DetectionCriteria    DetectionCriteria `json:"detection_criteria"`
	ValidationStrictness Strictness        `json:"validation_strictness"`
	AutoFixEnabled       bool              `json:"auto_fix_enabled"`
}
