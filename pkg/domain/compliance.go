package domain

import (
	"fmt"
	"time"
)

// DimensionResult reports the dimension category of a validation.
type DimensionResult struct {
	Passes         bool              `json:"passes"`
	ActualWidth    int               `json:"actual_width"`
	ActualHeight   int               `json:"actual_height"`
	RequiredWidth  int               `json:"required_width"`
	RequiredHeight int               `json:"required_height"`
	WidthRatio     float64           `json:"width_ratio"`
	HeightRatio    float64           `json:"height_ratio"`
	Issues         []ValidationIssue `json:"issues,omitempty"`
}

// PositionResult reports the face positioning category.
type PositionResult struct {
	Passes          bool              `json:"passes"`
	FaceHeightRatio float64           `json:"face_height_ratio"`
	EyeHeightRatio  float64           `json:"eye_height_ratio"`
	FaceCenterX     float64           `json:"face_center_x"`
	FaceCenterY     float64           `json:"face_center_y"`
	FaceAngle       float64           `json:"face_angle"`
	Issues          []ValidationIssue `json:"issues,omitempty"`
}

// BackgroundResult reports the background category.
type BackgroundResult struct {
	Passes             bool              `json:"passes"`
	DominantColor      [3]int            `json:"dominant_color"`
	RequiredColor      [3]int            `json:"required_color"`
	ColorDifference    float64           `json:"color_difference"`
	Uniformity         float64           `json:"uniformity"`
	RequiredUniformity float64           `json:"required_uniformity"`
	Issues             []ValidationIssue `json:"issues,omitempty"`
}

// QualityResult reports the image quality category.
type QualityResult struct {
	Passes       bool              `json:"passes"`
	Brightness   float64           `json:"brightness"`
	Sharpness    float64           `json:"sharpness"`
	BlurVariance float64           `json:"blur_variance"`
	Issues       []ValidationIssue `json:"issues,omitempty"`
}

// ComplianceResult is the full outcome of validating one measurement bundle
// against one format. It holds no reference back into the store and stays
// valid after a concurrent configuration reload.
type ComplianceResult struct {
	FormatID        string            `json:"format_id"`
	OverallPass     bool              `json:"overall_pass"`
	ComplianceScore float64           `json:"compliance_score"`
	DimensionCheck  DimensionResult   `json:"dimension_check"`
	PositionCheck   PositionResult    `json:"position_check"`
	BackgroundCheck BackgroundResult  `json:"background_check"`
	QualityCheck    QualityResult     `json:"quality_check"`
	RuleChecks      []RuleResult      `json:"rule_checks,omitempty"`
	Issues          []ValidationIssue `json:"issues,omitempty"`
	ProcessingTime  time.Duration     `json:"processing_time"`
}

// CriticalIssues returns the critical-severity subset of Issues.
func (r ComplianceResult) CriticalIssues() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical {
			out = append(out, issue)
		}
	}
	return out
}

// AutoFixableIssues returns the subset of Issues the auto-fix layer can act on.
func (r ComplianceResult) AutoFixableIssues() []ValidationIssue {
	var out []ValidationIssue
	for _, issue := range r.Issues {
		if issue.AutoFixable {
			out = append(out, issue)
		}
	}
	return out
}

// Summary renders a one-line human-readable verdict.
func (r ComplianceResult) Summary() string {
	if r.OverallPass {
		return fmt.Sprintf("PASS - compliance score %.1f%%", r.ComplianceScore)
	}
	return fmt.Sprintf("FAIL - %d issues (%d critical), score %.1f%%",
		len(r.Issues), len(r.CriticalIssues()), r.ComplianceScore)
}
