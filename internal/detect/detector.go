// Package detect ranks the formats of the current snapshot against image
// metadata, reporting how plausibly each format matches without decoding any
// pixels.
package detect

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"photocore/internal/formats"
	"photocore/internal/logging"
	"photocore/pkg/domain"
)

// Signal weights. Aspect ratio dominates because it is the most stable
// property across rescaled copies of the same photo.
const (
	weightAspect     = 0.40
	weightDimensions = 0.25
	weightResolution = 0.15
	weightFileSize   = 0.10
	weightHints      = 0.10
)

// countryKeywords maps a format's country to the tokens that travel agencies
// and scanners commonly embed in filenames and EXIF software tags.
var countryKeywords = map[string][]string{
	"US": {"us_visa", "us-visa", "usa", "american"},
	"AE": {"uae", "emirates", "ics"},
	"EU": {"schengen", "europe", "european"},
	"IN": {"india", "indian"},
	"CA": {"canada", "canadian", "canada-pr", "canada_pr"},
}

// Detector ranks formats against image metadata.
type Detector struct {
	store    *formats.Store
	logger   logging.Logger
	observer Observer
}

// Observer receives detection outcomes for metrics. Implementations must be
// safe for concurrent use.
type Observer interface {
	DetectionFinished(matches int)
}

// Option configures a Detector.
type Option func(*Detector)

// WithLogger sets the detector's logger.
func WithLogger(l logging.Logger) Option {
	return func(d *Detector) { d.logger = l }
}

// WithObserver registers a metrics observer.
func WithObserver(o Observer) Option {
	return func(d *Detector) { d.observer = o }
}

// New creates a detector over the given store.
func New(store *formats.Store, opts ...Option) *Detector {
	d := &Detector{store: store, logger: logging.Nop()}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Detect scores every format of the current snapshot against the metadata
// and returns those at or above minConfidence, best first. Candidates with
// equal confidence are ordered by ascending format id so repeated calls rank
// identically.
func (d *Detector) Detect(meta domain.ImageMetadata, minConfidence float64) []domain.FormatMatchResult {
	snap := d.store.Snapshot()

	var out []domain.FormatMatchResult
	snap.Each(func(rule domain.FormatRule) {
		match := scoreFormat(rule, meta)
		if match.Confidence >= minConfidence {
			out = append(out, match)
		}
	})

	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].FormatID < out[j].FormatID
	})
	if d.observer != nil {
		d.observer.DetectionFinished(len(out))
	}
	d.logger.Debug("format detection finished",
		"candidates", snap.Len(), "matches", len(out))
	return out
}

// BestMatch returns the single best candidate at or above minConfidence.
func (d *Detector) BestMatch(meta domain.ImageMetadata, minConfidence float64) (domain.FormatMatchResult, bool) {
	matches := d.Detect(meta, minConfidence)
	if len(matches) == 0 {
		return domain.FormatMatchResult{}, false
	}
	return matches[0], true
}

func scoreFormat(rule domain.FormatRule, meta domain.ImageMetadata) domain.FormatMatchResult {
	match := domain.FormatMatchResult{
		FormatID:          rule.FormatID,
		QualityIndicators: make(map[string]float64, 4),
	}

	criteria := rule.DetectionCriteria
	target := criteria.TargetAspectRatio
	if target <= 0 {
		target = rule.Dimensions.AspectRatio
	}
	tol := criteria.Tolerance
	if tol <= 0 {
		tol = 0.05
	}

	aspectScore := 0.0
	if ar := meta.AspectRatio(); ar > 0 && target > 0 {
		diff := math.Abs(ar-target) / target
		aspectScore = math.Max(0, 1-diff/(2*tol))
		if diff <= tol {
			match.AspectRatioMatch = true
			match.MatchReasons = append(match.MatchReasons,
				fmt.Sprintf("aspect ratio %.3f within %.0f%% of target %.3f", ar, tol*100, target))
		}
	}
	match.QualityIndicators["aspect_ratio"] = round3(aspectScore)

	dimScore := 0.0
	if rule.Dimensions.Width > 0 && rule.Dimensions.Height > 0 && meta.WidthPx > 0 && meta.HeightPx > 0 {
		wDiff := math.Abs(float64(meta.WidthPx)/float64(rule.Dimensions.Width) - 1)
		hDiff := math.Abs(float64(meta.HeightPx)/float64(rule.Dimensions.Height) - 1)
		dimTol := rule.Dimensions.Tolerance
		if dimTol <= 0 {
			dimTol = 0.05
		}
		worst := math.Max(wDiff, hDiff)
		dimScore = math.Max(0, 1-worst/(2*dimTol))
		if worst <= dimTol {
			match.DimensionMatch = true
			match.MatchReasons = append(match.MatchReasons,
				fmt.Sprintf("dimensions %dx%d match required %dx%d",
					meta.WidthPx, meta.HeightPx, rule.Dimensions.Width, rule.Dimensions.Height))
		}
	}
	match.QualityIndicators["dimensions"] = round3(dimScore)

	resScore := resolutionScore(criteria.MinResolution, meta)
	if resScore == 1 && criteria.MinResolution > 0 {
		match.MatchReasons = append(match.MatchReasons,
			fmt.Sprintf("resolution meets the %dpx minimum", criteria.MinResolution))
	}
	match.QualityIndicators["resolution"] = round3(resScore)

	sizeScore := fileSizeScore(meta.FileSize)
	if sizeScore == 1 {
		match.MatchReasons = append(match.MatchReasons, "file size in the expected range")
	}
	match.QualityIndicators["file_size"] = round3(sizeScore)

	hintScore, hintReason := metadataHintScore(rule, meta)
	if hintReason != "" {
		match.MatchReasons = append(match.MatchReasons, hintReason)
	}
	match.QualityIndicators["metadata_hints"] = round3(hintScore)

	match.Confidence = round3(weightAspect*aspectScore +
		weightDimensions*dimScore +
		weightResolution*resScore +
		weightFileSize*sizeScore +
		weightHints*hintScore)
	return match
}

// fileSizeScore grades how plausible the byte count is for a compliance
// photo. An unknown size is scored neutrally rather than counted against the
// candidate.
func fileSizeScore(bytes int64) float64 {
	if bytes <= 0 {
		return 0.5
	}
	mb := float64(bytes) / (1 << 20)
	switch {
	case mb < 0.5:
		return 0.3
	case mb > 10:
		return 0.7
	default:
		return 1
	}
}

// resolutionScore grades the shorter image side against the format's minimum
// resolution. Formats without a minimum treat any real image as sufficient.
func resolutionScore(minResolution int, meta domain.ImageMetadata) float64 {
	if meta.WidthPx <= 0 || meta.HeightPx <= 0 {
		return 0
	}
	if minResolution <= 0 {
		return 1
	}
	short := meta.WidthPx
	if meta.HeightPx < short {
		short = meta.HeightPx
	}
	return math.Min(1, float64(short)/float64(minResolution))
}

// metadataHintScore searches the filename and EXIF text fields for format id
// tokens, e.g. "us" and "visa" for us-visa, and for the keywords associated
// with the format's country. A country keyword counts as a full hint on its
// own since scanners stamp it independently of how the user names the file.
func metadataHintScore(rule domain.FormatRule, meta domain.ImageMetadata) (float64, string) {
	var sb strings.Builder
	sb.WriteString(strings.ToLower(meta.Filename))
	for _, v := range meta.EXIF {
		sb.WriteByte(' ')
		sb.WriteString(strings.ToLower(v))
	}
	text := sb.String()
	if strings.TrimSpace(text) == "" {
		return 0, ""
	}

	tokens := strings.FieldsFunc(strings.ToLower(rule.FormatID), func(r rune) bool {
		return r == '-' || r == '_'
	})
	matched := 0
	for _, token := range tokens {
		if len(token) >= 2 && strings.Contains(text, token) {
			matched++
		}
	}
	score := 0.0
	if len(tokens) > 0 {
		score = float64(matched) / float64(len(tokens))
	}

	reason := ""
	if score > 0 {
		reason = "filename or EXIF text hints at this format"
	}
	for _, kw := range countryKeywords[strings.ToUpper(rule.Country)] {
		if strings.Contains(text, kw) {
			score = 1
			reason = fmt.Sprintf("metadata mentions country %s", strings.ToUpper(rule.Country))
			break
		}
	}
	return score, reason
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
