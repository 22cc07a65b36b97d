package detect

import (
	"math"

	"photocore/pkg/domain"
)

// CompatibilityMatrix scores every ordered pair of formats in the current
// snapshot by how likely a photo prepared for one also satisfies the other's
// geometry and backdrop. Scores run from 0 to 1 with 1 on the diagonal.
func (d *Detector) CompatibilityMatrix() map[string]map[string]float64 {
	snap := d.store.Snapshot()
	ids := snap.IDs()

	matrix := make(map[string]map[string]float64, len(ids))
	for _, from := range ids {
		row := make(map[string]float64, len(ids))
		fromRule, _ := snap.Get(from)
		for _, to := range ids {
			if from == to {
				row[to] = 1
				continue
			}
			toRule, _ := snap.Get(to)
			row[to] = compatibility(fromRule, toRule)
		}
		matrix[from] = row
	}
	return matrix
}

func compatibility(from, to domain.FormatRule) float64 {
	score := 0.0

	// Aspect ratio closeness is weighted highest: a mismatch there cannot
	// be fixed by rescaling.
	fromAR, toAR := from.Dimensions.AspectRatio, to.Dimensions.AspectRatio
	if fromAR > 0 && toAR > 0 {
		diff := math.Abs(fromAR-toAR) / toAR
		score += 0.5 * math.Max(0, 1-diff*4)
	}

	// A photo sized for the source format must carry enough pixels for the
	// target; upscaling is not an option.
	if from.Dimensions.Width >= to.Dimensions.Width && from.Dimensions.Height >= to.Dimensions.Height {
		score += 0.3
	} else if to.Dimensions.Width > 0 && to.Dimensions.Height > 0 {
		wRatio := float64(from.Dimensions.Width) / float64(to.Dimensions.Width)
		hRatio := float64(from.Dimensions.Height) / float64(to.Dimensions.Height)
		score += 0.3 * math.Max(0, math.Min(wRatio, hRatio))
	}

	if from.Background.Color == to.Background.Color {
		score += 0.2
	}
	return round3(math.Min(score, 1))
}
