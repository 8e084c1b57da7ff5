package extract

import (
	"math"
	"strings"

	"github.com/ironsheep/label-compliance/internal/ocr"
	"github.com/ironsheep/label-compliance/internal/rules"
)

// DetectedField is the extraction outcome for one rule.
type DetectedField struct {
	Name     string  `json:"name"`
	Detected bool    `json:"detected"`
	Value    *string `json:"value,omitempty"`
	// Confidence is specificity times the mean recognizer confidence of the
	// tokens under the match, in [0, 1].
	Confidence float64 `json:"confidence"`
	Icon       string  `json:"icon"`
}

// ValueOr returns the detected value or def when there is none.
func (f DetectedField) ValueOr(def string) string {
	if f.Value == nil {
		return def
	}
	return *f.Value
}

// Extract returns exactly one DetectedField per rule, in rule order.
func Extract(text *ocr.RecognizedText, fieldRules []rules.FieldRule) []DetectedField {
	out := make([]DetectedField, len(fieldRules))
	for i, r := range fieldRules {
		out[i] = extractField(text, r)
	}
	return out
}

func extractField(text *ocr.RecognizedText, r rules.FieldRule) DetectedField {
	field := DetectedField{Name: r.Name, Icon: r.Icon}
	if text == nil || text.FullText == "" {
		return field
	}

	pages := pageSpans(text.FullText)
	for _, m := range r.Matchers {
		for _, pg := range pages {
			page := text.FullText[pg[0]:pg[1]]
			for _, loc := range m.Pattern.FindAllStringSubmatchIndex(page, -1) {
				if m.Excluded(loc) {
					continue
				}
				start, end, ok := m.Capture(loc)
				if !ok {
					continue
				}
				value, ok := m.Normalize(page[start:end])
				if !ok {
					continue
				}
				field.Detected = true
				field.Value = &value
				field.Confidence = round4(m.Specificity * text.MeanConfidence(pg[0]+loc[0], pg[0]+loc[1]))
				return field
			}
		}
	}
	return field
}

// pageSpans splits s at form feeds, which only occur in page separators,
// so that no match can cross from one page into the next.
func pageSpans(s string) [][2]int {
	var spans [][2]int
	start := 0
	for {
		i := strings.IndexByte(s[start:], '\f')
		if i < 0 {
			return append(spans, [2]int{start, len(s)})
		}
		spans = append(spans, [2]int{start, start + i})
		start += i + 1
	}
}

func round4(v float64) float64 {
	v = math.Round(v*10000) / 10000
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
