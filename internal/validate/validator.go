// Package validate scores measurement bundles against resolved format rules
// and the rule catalog, producing structured compliance results.
package validate

import (
	"fmt"
	"math"
	"sort"
	"time"

	"photocore/internal/catalog"
	"photocore/internal/formats"
	"photocore/internal/logging"
	"photocore/pkg/domain"
)

// Validator checks measurement bundles for compliance. It reads the format
// store through snapshots, so a validation that started before a reload
// finishes against the configuration it started with.
type Validator struct {
	store    *formats.Store
	catalog  *catalog.Catalog
	logger   logging.Logger
	observer Observer
}

// Observer receives validation outcomes for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	ValidationFinished(formatID string, pass bool, score float64, d time.Duration)
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the validator's logger.
func WithLogger(l logging.Logger) Option {
	return func(v *Validator) { v.logger = l }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(v *Validator) { v.observer = o }
}

// New creates a validator over the given store and catalog.
func New(store *formats.Store, cat *catalog.Catalog, opts ...Option) *Validator {
	v := &Validator{store: store, catalog: cat, logger: logging.Nop()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate checks one measurement bundle against the named format. The only
// error condition is an unknown format; every measurable deviation is
// reported inside the result instead.
func (v *Validator) Validate(formatID string, bundle domain.MeasurementBundle) (domain.ComplianceResult, error) {
	start := time.Now()

	snap := v.store.Snapshot()
	rule, ok := snap.Get(formatID)
	if !ok {
		return domain.ComplianceResult{}, &domain.UnknownFormatError{FormatID: formatID}
	}
	cat := v.catalog.ForVariation(rule.Country)

	res := domain.ComplianceResult{FormatID: rule.FormatID}
	res.DimensionCheck = checkDimensions(rule, bundle.Image)
	res.PositionCheck = checkPosition(rule, bundle.Face)
	res.BackgroundCheck = checkBackground(rule, bundle.Background)
	res.QualityCheck = checkQuality(rule, bundle.Quality)
	res.RuleChecks = v.ruleChecks(cat, rule, bundle)

	strictness := rule.ValidationStrictness
	res.DimensionCheck.Passes = passesAt(strictness, res.DimensionCheck.Issues)
	res.PositionCheck.Passes = passesAt(strictness, res.PositionCheck.Issues)
	res.BackgroundCheck.Passes = passesAt(strictness, res.BackgroundCheck.Issues)
	res.QualityCheck.Passes = passesAt(strictness, res.QualityCheck.Issues)

	res.Issues = collectIssues(res)
	res.ComplianceScore = score(res)
	res.OverallPass = res.DimensionCheck.Passes &&
		res.PositionCheck.Passes &&
		res.BackgroundCheck.Passes &&
		res.QualityCheck.Passes &&
		ruleChecksPass(strictness, res.RuleChecks)
	if len(res.CriticalIssues()) > 0 {
		res.OverallPass = false
	}
	res.ProcessingTime = time.Since(start)

	if v.observer != nil {
		v.observer.ValidationFinished(rule.FormatID, res.OverallPass, res.ComplianceScore, res.ProcessingTime)
	}
	v.logger.Debug("validation finished",
		"format_id", rule.FormatID,
		"pass", res.OverallPass,
		"score", res.ComplianceScore,
		"issues", len(res.Issues))
	return res, nil
}

// passesAt decides whether a category passes under the format's strictness:
// relaxed tolerates everything below critical, standard tolerates minor
// findings, strict tolerates none.
func passesAt(strictness domain.Strictness, issues []domain.ValidationIssue) bool {
	for _, issue := range issues {
		switch strictness {
		case domain.StrictnessRelaxed:
			if issue.Severity == domain.SeverityCritical {
				return false
			}
		case domain.StrictnessStrict:
			return false
		default:
			if issue.Severity != domain.SeverityMinor {
				return false
			}
		}
	}
	return true
}

func ruleChecksPass(strictness domain.Strictness, checks []domain.RuleResult) bool {
	for _, check := range checks {
		if check.Passes {
			continue
		}
		switch strictness {
		case domain.StrictnessRelaxed:
			if check.Severity == domain.SeverityCritical {
				return false
			}
		case domain.StrictnessStrict:
			return false
		default:
			if check.Severity != domain.SeverityMinor {
				return false
			}
		}
	}
	return true
}

func checkDimensions(rule domain.FormatRule, img domain.ImageMetadata) domain.DimensionResult {
	res := domain.DimensionResult{
		ActualWidth:    img.WidthPx,
		ActualHeight:   img.HeightPx,
		RequiredWidth:  rule.Dimensions.Width,
		RequiredHeight: rule.Dimensions.Height,
	}
	if rule.Dimensions.Width > 0 {
		res.WidthRatio = float64(img.WidthPx) / float64(rule.Dimensions.Width)
	}
	if rule.Dimensions.Height > 0 {
		res.HeightRatio = float64(img.HeightPx) / float64(rule.Dimensions.Height)
	}

	tol := rule.Dimensions.Tolerance
	if rule.Dimensions.Width > 0 && math.Abs(res.WidthRatio-1) > tol {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryDimensions,
			Severity: domain.SeverityMajor,
			Message: fmt.Sprintf("width %dpx outside tolerance of required %dpx",
				img.WidthPx, rule.Dimensions.Width),
			Suggestion: fmt.Sprintf("resize the image to %dx%d pixels",
				rule.Dimensions.Width, rule.Dimensions.Height),
			AutoFixable: true,
		})
	}
	if rule.Dimensions.Height > 0 && math.Abs(res.HeightRatio-1) > tol {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryDimensions,
			Severity: domain.SeverityMajor,
			Message: fmt.Sprintf("height %dpx outside tolerance of required %dpx",
				img.HeightPx, rule.Dimensions.Height),
			Suggestion: fmt.Sprintf("resize the image to %dx%d pixels",
				rule.Dimensions.Width, rule.Dimensions.Height),
			AutoFixable: true,
		})
	}
	if target := rule.Dimensions.AspectRatio; target > 0 && img.AspectRatio() > 0 {
		if math.Abs(img.AspectRatio()-target)/target > tol {
			res.Issues = append(res.Issues, domain.ValidationIssue{
				Category: domain.CategoryDimensions,
				Severity: domain.SeverityMajor,
				Message: fmt.Sprintf("aspect ratio %.3f deviates from required %.3f",
					img.AspectRatio(), target),
				Suggestion:  "crop the image to the required aspect ratio",
				AutoFixable: true,
			})
		}
	}
	res.Passes = len(res.Issues) == 0
	return res
}

func checkPosition(rule domain.FormatRule, face domain.FaceMetrics) domain.PositionResult {
	res := domain.PositionResult{
		FaceHeightRatio: face.HeightRatio,
		EyeHeightRatio:  face.EyeHeightRatio,
		FaceCenterX:     face.CenterX,
		FaceCenterY:     face.CenterY,
		FaceAngle:       face.AngleDeg,
	}
	if !face.Detected {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:   domain.CategoryFace,
			Severity:   domain.SeverityCritical,
			Message:    "no face detected in the image",
			Suggestion: "use a frontal photo with a clearly visible face",
		})
		return res
	}

	req := rule.FaceRequirements
	if !req.HeightRatio.Contains(face.HeightRatio) {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryFace,
			Severity: domain.SeverityMajor,
			Message: fmt.Sprintf("face height ratio %.2f outside required %.2f to %.2f",
				face.HeightRatio, req.HeightRatio.Min, req.HeightRatio.Max),
			Suggestion:  "adjust camera distance so the head fills the required share of the frame",
			AutoFixable: true,
		})
	}
	if !req.EyeHeightRatio.Contains(face.EyeHeightRatio) {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryFace,
			Severity: domain.SeverityMajor,
			Message: fmt.Sprintf("eye line at %.2f of frame height, required %.2f to %.2f",
				face.EyeHeightRatio, req.EyeHeightRatio.Min, req.EyeHeightRatio.Max),
			Suggestion:  "reframe so the eyes sit at the required height",
			AutoFixable: true,
		})
	}
	if offX, offY := math.Abs(face.CenterX-0.5), math.Abs(face.CenterY-0.5); offX > req.CenteringTolerance || offY > req.CenteringTolerance {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:    domain.CategoryFace,
			Severity:    domain.SeverityMinor,
			Message:     fmt.Sprintf("face center offset (%.2f, %.2f) exceeds tolerance %.2f", offX, offY, req.CenteringTolerance),
			Suggestion:  "center the face horizontally and vertically",
			AutoFixable: true,
		})
	}
	if math.Abs(face.AngleDeg) > req.MaxRotation {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:    domain.CategoryFace,
			Severity:    domain.SeverityMinor,
			Message:     fmt.Sprintf("head tilted %.1f degrees, maximum is %.1f", face.AngleDeg, req.MaxRotation),
			Suggestion: "keep the head upright",
		})
	}
	res.Passes = len(res.Issues) == 0
	return res
}

func checkBackground(rule domain.FormatRule, bg domain.BackgroundStats) domain.BackgroundResult {
	res := domain.BackgroundResult{
		DominantColor:      bg.DominantRGB,
		RequiredColor:      rule.Background.RGB,
		Uniformity:         bg.Uniformity,
		RequiredUniformity: rule.Background.UniformityThreshold,
	}
	res.ColorDifference = colorDistance(bg.DominantRGB, rule.Background.RGB)
	if res.ColorDifference > rule.Background.Tolerance {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryBackground,
			Severity: domain.SeverityMajor,
			Message: fmt.Sprintf("background color differs from required %s by %.1f, tolerance %.1f",
				rule.Background.Color, res.ColorDifference, rule.Background.Tolerance),
			Suggestion:  fmt.Sprintf("retake against a plain %s background", rule.Background.Color),
			AutoFixable: true,
		})
	}
	if bg.Uniformity < rule.Background.UniformityThreshold {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category: domain.CategoryBackground,
			Severity: domain.SeverityMinor,
			Message: fmt.Sprintf("background uniformity %.2f below required %.2f",
				bg.Uniformity, rule.Background.UniformityThreshold),
			Suggestion:  "avoid shadows and patterns behind the subject",
			AutoFixable: true,
		})
	}
	res.Passes = len(res.Issues) == 0
	return res
}

func checkQuality(rule domain.FormatRule, q domain.QualityStats) domain.QualityResult {
	res := domain.QualityResult{
		Brightness:   q.Brightness,
		Sharpness:    q.Sharpness,
		BlurVariance: q.BlurVariance,
	}
	th := rule.QualityThresholds
	if q.Brightness < th.MinBrightness {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:    domain.CategoryQuality,
			Severity:    domain.SeverityMajor,
			Message:     fmt.Sprintf("brightness %.1f below minimum %.1f", q.Brightness, th.MinBrightness),
			Suggestion:  "increase lighting or exposure",
			AutoFixable: true,
		})
	}
	if th.MaxBrightness > 0 && q.Brightness > th.MaxBrightness {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:    domain.CategoryQuality,
			Severity:    domain.SeverityMajor,
			Message:     fmt.Sprintf("brightness %.1f above maximum %.1f", q.Brightness, th.MaxBrightness),
			Suggestion:  "reduce lighting or exposure",
			AutoFixable: true,
		})
	}
	if q.Sharpness < th.MinSharpness {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:   domain.CategoryQuality,
			Severity:   domain.SeverityCritical,
			Message:    fmt.Sprintf("sharpness %.1f below minimum %.1f", q.Sharpness, th.MinSharpness),
			Suggestion: "retake with proper focus",
		})
	}
	if th.MaxBlurVariance > 0 && q.BlurVariance > th.MaxBlurVariance {
		res.Issues = append(res.Issues, domain.ValidationIssue{
			Category:   domain.CategoryQuality,
			Severity:   domain.SeverityCritical,
			Message:    fmt.Sprintf("blur variance %.1f above maximum %.1f", q.BlurVariance, th.MaxBlurVariance),
			Suggestion: "retake with a steady camera",
		})
	}
	res.Passes = len(res.Issues) == 0
	return res
}

// ruleChecks evaluates every catalog rule the format opts into through its
// ICAO overrides, with the format's parameter overrides layered on top of
// the catalog definition.
func (v *Validator) ruleChecks(cat *catalog.Catalog, rule domain.FormatRule, bundle domain.MeasurementBundle) []domain.RuleResult {
	if len(rule.ICAORules) == 0 {
		return nil
	}
	var paths []string
	for category, rules := range rule.ICAORules {
		for name := range rules {
			paths = append(paths, category+"."+name)
		}
	}
	sort.Strings(paths)

	out := make([]domain.RuleResult, 0, len(paths))
	for _, path := range paths {
		category, name := splitPath(path)
		overrides := rule.ICAORules[category][name]

		def, found := cat.ByPath(path)
		params := overrides
		if found {
			params = mergeParams(def.Parameters, overrides)
		}
		merged, err := catalog.Define(path, name, params)
		if err != nil {
			if found {
				// Bad override; fall back to the catalog definition.
				v.logger.Warn("ignoring invalid rule override",
					"format_id", rule.FormatID, "rule", path, "error", err)
				merged = def
			} else {
				signal, _ := bundle.Signal(path, "")
				out = append(out, cat.Evaluate(path, signal))
				continue
			}
		}
		signal, _ := bundle.Signal(path, merged.RuleID)
		res := catalog.EvaluateRule(merged, signal)
		if res.RuleID == "" {
			res.RuleID = path
		}
		out = append(out, res)
	}
	return out
}

func collectIssues(res domain.ComplianceResult) []domain.ValidationIssue {
	var out []domain.ValidationIssue
	out = append(out, res.DimensionCheck.Issues...)
	out = append(out, res.PositionCheck.Issues...)
	out = append(out, res.BackgroundCheck.Issues...)
	out = append(out, res.QualityCheck.Issues...)
	for _, check := range res.RuleChecks {
		if check.Passes {
			continue
		}
		message := check.Description
		if message == "" {
			message = fmt.Sprintf("rule %s failed", check.RuleID)
		}
		out = append(out, domain.ValidationIssue{
			Category:      domain.CategoryRules,
			Severity:      check.Severity,
			Message:       message,
			Suggestion:    check.Suggestion,
			RuleReference: check.RuleID,
		})
	}
	return out
}

// Category weights for the compliance score. Rules only weigh in when the
// format opts into any.
var scoreWeights = map[domain.Category]float64{
	domain.CategoryDimensions: 0.25,
	domain.CategoryFace:       0.25,
	domain.CategoryBackground: 0.20,
	domain.CategoryQuality:    0.20,
	domain.CategoryRules:      0.10,
}

func score(res domain.ComplianceResult) float64 {
	ratios := map[domain.Category]float64{
		domain.CategoryDimensions: boolScore(res.DimensionCheck.Passes),
		domain.CategoryFace:       boolScore(res.PositionCheck.Passes),
		domain.CategoryBackground: boolScore(res.BackgroundCheck.Passes),
		domain.CategoryQuality:    boolScore(res.QualityCheck.Passes),
	}
	if len(res.RuleChecks) > 0 {
		passed := 0
		for _, check := range res.RuleChecks {
			if check.Passes {
				passed++
			}
		}
		ratios[domain.CategoryRules] = float64(passed) / float64(len(res.RuleChecks))
	}

	var sum, weightSum float64
	for category, ratio := range ratios {
		w := scoreWeights[category]
		sum += w * ratio
		weightSum += w
	}
	if weightSum == 0 {
		return 0
	}
	return math.Round(sum/weightSum*1000) / 10
}

func boolScore(pass bool) float64 {
	if pass {
		return 1
	}
	return 0
}

func colorDistance(a, b [3]int) float64 {
	var sum float64
	for i := 0; i < 3; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func mergeParams(base, overrides map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(overrides))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

func splitPath(path string) (category, name string) {
	for i := 0; i < len(path); i++ {
		if path[i] == '.' {
			return path[:i], path[i+1:]
		}
	}
	return path, ""
}
