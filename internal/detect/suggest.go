package detect

import (
	"fmt"
	"math"

	"photocore/pkg/domain"
)

// Suggestion priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// ImprovementSuggestions lists the metadata-level changes that would move an
// image toward the named format, in descending priority. An unknown format
// yields an error so callers can distinguish "nothing to fix" from a bad id.
func (d *Detector) ImprovementSuggestions(formatID string, meta domain.ImageMetadata) ([]domain.ImprovementSuggestion, error) {
	rule, ok := d.store.Get(formatID)
	if !ok {
		return nil, &domain.UnknownFormatError{FormatID: formatID}
	}

	var out []domain.ImprovementSuggestion

	if min := rule.DetectionCriteria.MinResolution; min > 0 {
		short := meta.WidthPx
		if meta.HeightPx < short {
			short = meta.HeightPx
		}
		if short < min {
			out = append(out, domain.ImprovementSuggestion{
				Category:   domain.CategoryDimensions,
				Issue:      fmt.Sprintf("shorter side is %dpx, format needs at least %dpx", short, min),
				Suggestion: "retake or rescan the photo at a higher resolution",
				Priority:   PriorityHigh,
			})
		}
	}

	dims := rule.Dimensions
	if dims.Width > 0 && dims.Height > 0 && (meta.WidthPx != dims.Width || meta.HeightPx != dims.Height) {
		larger := meta.WidthPx >= dims.Width && meta.HeightPx >= dims.Height
		priority := PriorityHigh
		if larger {
			// Downscaling is lossless enough to be routine.
			priority = PriorityMedium
		}
		out = append(out, domain.ImprovementSuggestion{
			Category: domain.CategoryDimensions,
			Issue: fmt.Sprintf("image is %dx%d, format requires %dx%d",
				meta.WidthPx, meta.HeightPx, dims.Width, dims.Height),
			Suggestion:  fmt.Sprintf("resize the image to %dx%d pixels", dims.Width, dims.Height),
			AutoFixable: larger,
			Priority:    priority,
		})
	}

	if target := dims.AspectRatio; target > 0 && meta.AspectRatio() > 0 {
		tol := dims.Tolerance
		if tol <= 0 {
			tol = 0.05
		}
		if math.Abs(meta.AspectRatio()-target)/target > tol {
			out = append(out, domain.ImprovementSuggestion{
				Category: domain.CategoryDimensions,
				Issue: fmt.Sprintf("aspect ratio %.3f differs from required %.3f",
					meta.AspectRatio(), target),
				Suggestion:  "crop the image to the required aspect ratio before resizing",
				AutoFixable: true,
				Priority:    PriorityHigh,
			})
		}
	}

	if meta.FileSize > maxReasonableFileSize {
		out = append(out, domain.ImprovementSuggestion{
			Category:    domain.CategoryQuality,
			Issue:       fmt.Sprintf("file is %d bytes, unusually large for a compliance photo", meta.FileSize),
			Suggestion:  "re-encode the image with standard JPEG compression",
			AutoFixable: true,
			Priority:    PriorityLow,
		})
	}
	return out, nil
}

// Photos past this size are almost always uncompressed scans.
const maxReasonableFileSize = 10 << 20
