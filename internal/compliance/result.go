package compliance

import (
	"encoding/json"

	"github.com/ironsheep/label-compliance/internal/extract"
	"github.com/ironsheep/label-compliance/internal/fallback"
	"github.com/ironsheep/label-compliance/internal/rules"
	"github.com/ironsheep/label-compliance/internal/scoring"
)

// Result is the outcome of one compliance check. It is immutable: accessors
// return copies.
type Result struct {
	score         int
	status        scoring.Status
	extractedText string
	fields        []extract.DetectedField
	synthetic     bool
	runID         string
	pages         int
	skippedPages  []int
	warnings      []string
}

func (r *Result) Score() int { return r.score }
func (r *Result) Status() scoring.Status { return r.status }
func (r *Result) ExtractedText() string { return r.extractedText }
func (r *Result) Synthetic() bool { return r.synthetic }
func (r *Result) RunID() string { return r.runID }
func (r *Result) Pages() int { return r.pages }

// Fields returns the detected fields in rule order.
func (r *Result) Fields() []extract.DetectedField {
	out := make([]extract.DetectedField, len(r.fields))
	for i, f := range r.fields {
		if f.Value != nil {
			v := *f.Value
			f.Value = &v
		}
		out[i] = f
	}
	return out
}

// SkippedPages lists 1-based page numbers that produced no text.
func (r *Result) SkippedPages() []int {
	return append([]int(nil), r.skippedPages...)
}

// Warnings lists non-fatal problems met during the check.
func (r *Result) Warnings() []string {
	return append([]string(nil), r.warnings...)
}

// DetectedCount is the number of detected fields.
func (r *Result) DetectedCount() int {
	n := 0
	for _, f := range r.fields {
		if f.Detected {
			n++
		}
	}
	return n
}

type resultJSON struct {
	Score         int                     `json:"score"`
	ExtractedText string                  `json:"extracted_text"`
	Fields        []extract.DetectedField `json:"fields"`
	Status        scoring.Status          `json:"status"`
	Synthetic     bool                    `json:"synthetic"`
	RunID         string                  `json:"run_id,omitempty"`
	Pages         int                     `json:"pages"`
	SkippedPages  []int                   `json:"skipped_pages,omitempty"`
	Warnings      []string                `json:"warnings,omitempty"`
}

// MarshalJSON encodes the result with fields in rule order.
func (r *Result) MarshalJSON() ([]byte, error) {
	fields := r.fields
	if fields == nil {
		fields = []extract.DetectedField{}
	}
	return json.Marshal(resultJSON{
		Score:         r.score,
		ExtractedText: r.extractedText,
		Fields:        fields,
		Status:        r.status,
		Synthetic:     r.synthetic,
		RunID:         r.runID,
		Pages:         r.pages,
		SkippedPages:  r.skippedPages,
		Warnings:      r.warnings,
	})
}

// UnmarshalJSON decodes a result written by MarshalJSON.
func (r *Result) UnmarshalJSON(data []byte) error {
	var w resultJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Result{
		score:         w.Score,
		status:        w.Status,
		extractedText: w.ExtractedText,
		fields:        w.Fields,
		synthetic:     w.Synthetic,
		runID:         w.RunID,
		pages:         w.Pages,
		skippedPages:  w.SkippedPages,
		warnings:      w.Warnings,
	}
	return nil
}

func newResult(rs *rules.RuleSet, text string, fields []extract.DetectedField, pages int) *Result {
	score, status := scoring.Score(fields, rs.Thresholds)
	return &Result{
		score:         score,
		status:        status,
		extractedText: text,
		fields:        fields,
		pages:         pages,
	}
}

// Fallback builds the synthetic result returned when no recognition engine
// is available. It depends only on rs and carries no run ID.
func Fallback(rs *rules.RuleSet) *Result {
	r := newResult(rs, "", fallback.Fields(rs.Rules), 0)
	r.synthetic = true
	r.warnings = []string{fallback.Notice}
	return r
}
