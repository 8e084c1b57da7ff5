package detection

import (
	"image"
	"math"
)

// SkewOptions tunes the projection-profile angle search.
type SkewOptions struct {
	// MaxSamples caps the number of dark pixels that vote. Larger inputs are
	// subsampled with a fixed stride so the result is deterministic.
	MaxSamples int

	// CoarseStep is the angle step of the first pass over [-90, 90) degrees.
	CoarseStep float64

	// FineStep is the step used to refine around the coarse winner.
	FineStep float64

	// MinPoints is the fewest dark pixels needed to attempt an estimate.
	MinPoints int

	// MinGain is the ratio the best profile score must exceed the unrotated
	// score by before a non-zero angle is reported.
	MinGain float64
}

// DefaultSkewOptions returns the options used by the deskew stage.
func DefaultSkewOptions() SkewOptions {
	return SkewOptions{
		MaxSamples: 20000,
		CoarseStep: 1.0,
		FineStep:   0.1,
		MinPoints:  32,
		MinGain:    1.05,
	}
}

// SkewResult describes the dominant text-line angle of a binary image.
type SkewResult struct {
	// AngleDegrees is positive when lines descend to the right (the content is
	// rotated clockwise). Rotating by -AngleDegrees levels it.
	AngleDegrees float64 `json:"angle_degrees"`

	// Confidence is the best profile score relative to the unrotated score,
	// mapped into [0, 1). Zero when no estimate was possible.
	Confidence float64 `json:"confidence"`

	// Points is the number of dark pixels that voted.
	Points int `json:"points"`

	// Found is false when the image had too few dark pixels.
	Found bool `json:"found"`
}

// EstimateSkew finds the angle at which dark pixels of img collapse into the
// sharpest horizontal projection profile.
//
// Each candidate angle θ projects every sampled dark pixel onto
// r = y·cos θ − x·sin θ and scores the histogram of r by the sum of squared
// bin counts. Text lines at angle θ all share one r per line, so the score
// peaks there. A coarse pass covers [-90, 90) and a fine pass refines around
// the winner. Pixels with value below 128 count as dark.
func EstimateSkew(img *image.Gray, opts SkewOptions) SkewResult {
	if opts.CoarseStep <= 0 || opts.FineStep <= 0 {
		opts = DefaultSkewOptions()
	}

	pts := darkPoints(img, opts.MaxSamples)
	if len(pts) < opts.MinPoints || len(pts) == 0 {
		return SkewResult{Points: len(pts)}
	}

	b := img.Bounds()
	diag := int(math.Ceil(math.Hypot(float64(b.Dx()), float64(b.Dy())))) + 1
	bins := make([]int, 2*diag+1)

	score := func(deg float64) float64 {
		for i := range bins {
			bins[i] = 0
		}
		rad := deg * math.Pi / 180
		sinA, cosA := math.Sin(rad), math.Cos(rad)
		for _, p := range pts {
			r := float64(p.Y)*cosA - float64(p.X)*sinA
			idx := int(math.Floor(r)) + diag
			if idx >= 0 && idx < len(bins) {
				bins[idx]++
			}
		}
		var s float64
		for _, c := range bins {
			if c > 0 {
				s += float64(c) * float64(c)
			}
		}
		return s
	}

	best, bestScore := 0.0, -1.0
	for deg := -90.0; deg < 90.0; deg += opts.CoarseStep {
		if s := score(deg); s > bestScore {
			best, bestScore = deg, s
		}
	}
	lo, hi := best-opts.CoarseStep, best+opts.CoarseStep
	for deg := lo; deg <= hi+1e-9; deg += opts.FineStep {
		if s := score(deg); s > bestScore {
			best, bestScore = deg, s
		}
	}

	base := score(0)
	if base <= 0 {
		return SkewResult{Points: len(pts)}
	}
	gain := bestScore / base
	angle := math.Round(best*100) / 100
	if gain < opts.MinGain {
		angle = 0
	}
	switch {
	case angle >= 90:
		angle -= 180
	case angle < -90:
		angle += 180
	case angle == 0:
		angle = 0 // drop the sign of -0
	}

	return SkewResult{
		AngleDegrees: angle,
		Confidence:   1 - 1/math.Max(gain, 1),
		Points:       len(pts),
		Found:        true,
	}
}

// darkPoints collects pixels below mid-gray, keeping every k-th one when
// there are more than limit.
func darkPoints(img *image.Gray, limit int) []image.Point {
	b := img.Bounds()
	total := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[img.PixOffset(b.Min.X, y):img.PixOffset(b.Max.X, y)]
		for _, v := range row {
			if v < 128 {
				total++
			}
		}
	}
	stride := 1
	if limit > 0 && total > limit {
		stride = (total + limit - 1) / limit
	}

	pts := make([]image.Point, 0, total/stride+1)
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.Pix[img.PixOffset(x, y)] >= 128 {
				continue
			}
			if n%stride == 0 {
				pts = append(pts, image.Point{X: x - b.Min.X, Y: y - b.Min.Y})
			}
			n++
		}
	}
	return pts
}
