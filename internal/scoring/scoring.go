package scoring

import (
	"math"

	"github.com/ironsheep/label-compliance/internal/extract"
	"github.com/ironsheep/label-compliance/internal/rules"
)

// Status classifies a score.
type Status string

const (
	StatusPass    Status = "pass"
	StatusPartial Status = "partial"
	StatusFail    Status = "fail"
)

// Score weights every field equally (100 / number of fields) and sums the
// weights of detected fields, rounded to the nearest integer. No fields
// scores 0.
func Score(fields []extract.DetectedField, th rules.Thresholds) (int, Status) {
	if len(fields) == 0 {
		return 0, StatusFor(0, th)
	}
	detected := 0
	for _, f := range fields {
		if f.Detected {
			detected++
		}
	}
	score := int(math.Round(float64(detected) * 100 / float64(len(fields))))
	return score, StatusFor(score, th)
}

// StatusFor maps a score to its status under th.
func StatusFor(score int, th rules.Thresholds) Status {
	switch {
	case score >= th.Pass:
		return StatusPass
	case score >= th.Partial:
		return StatusPartial
	default:
		return StatusFail
	}
}
