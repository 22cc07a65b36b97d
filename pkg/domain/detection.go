package domain

// FormatMatchResult is one ranked candidate from format auto-detection.
// Results are created fresh per detection call and never persisted.
type FormatMatchResult struct {
	FormatID          string             `json:"format_id"`
	Confidence        float64            `json:"confidence"`
	MatchReasons      []string           `json:"match_reasons,omitempty"`
	DimensionMatch    bool               `json:"dimension_match"`
	AspectRatioMatch  bool               `json:"aspect_ratio_match"`
	QualityIndicators map[string]float64 `json:"quality_indicators,omitempty"`
}

// ImprovementSuggestion describes one change that would move an image toward
// a target format's requirements, derived from metadata alone.
type ImprovementSuggestion struct {
	Category    Category `json:"category"`
	Issue       string   `json:"issue"`
	Suggestion  string   `json:"suggestion"`
	AutoFixable bool     `json:"auto_fixable"`
	Priority    string   `json:"priority"`
}
