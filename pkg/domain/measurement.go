package domain

// ImageMetadata carries the raw facts about an image file that the engine can
// use without decoding pixels. It is produced by the caller (CLI, pipeline,
// UI) from file inspection and EXIF extraction.
type ImageMetadata struct {
	WidthPx  int               `json:"width_px"`
	HeightPx int               `json:"height_px"`
	FileSize int64             `json:"file_size_bytes"`
	Format   string            `json:"format"`
	Filename string            `json:"filename"`
	EXIF     map[string]string `json:"exif,omitempty"`
}

// AspectRatio returns width divided by height, or zero for a degenerate image.
func (m ImageMetadata) AspectRatio() float64 {
	if m.HeightPx <= 0 {
		return 0
	}
	return float64(m.WidthPx) / float64(m.HeightPx)
}

// FaceMetrics are the geometric face measurements produced by the external
// detector layer.
type FaceMetrics struct {
	Detected       bool    `json:"detected"`
	HeightRatio    float64 `json:"height_ratio"`
	EyeHeightRatio float64 `json:"eye_height_ratio"`
	// CenterX and CenterY are the face center as fractions of frame size.
	CenterX  float64 `json:"center_x"`
	CenterY  float64 `json:"center_y"`
	AngleDeg float64 `json:"angle_deg"`
}

// BackgroundStats summarize the backdrop as measured by the external
// background analyzer.
type BackgroundStats struct {
	DominantRGB [3]int  `json:"dominant_rgb"`
	Uniformity  float64 `json:"uniformity"`
}

// QualityStats summarize photographic quality as measured externally.
type QualityStats struct {
	Brightness   float64 `json:"brightness"`
	Sharpness    float64 `json:"sharpness"`
	BlurVariance float64 `json:"blur_variance"`
}

// MeasurementBundle is everything the engine consumes from the AI layer for
// one validation call. RuleSignals maps catalog rule paths or rule IDs to the
// measured signal evaluated by that rule (detection confidences, metric
// values); signals missing from the map are treated as zero.
type MeasurementBundle struct {
	Image       ImageMetadata      `json:"image"`
	Face        FaceMetrics        `json:"face"`
	Background  BackgroundStats    `json:"background"`
	Quality     QualityStats       `json:"quality"`
	RuleSignals map[string]float64 `json:"rule_signals,omitempty"`
}

// Signal returns the measured value for a rule, trying the dotted catalog
// path first and falling back to the rule ID.
func (b MeasurementBundle) Signal(path, ruleID string) (float64, bool) {
	if v, ok := b.RuleSignals[path]; ok {
		return v, true
	}
	v, ok := b.RuleSignals[ruleID]
	return v, ok
}
