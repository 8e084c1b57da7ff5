package ocr

import "strings"

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\f\n"

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// Word is one unit of engine output, in reading order.
type Word struct {
	// Text is the raw recognized text.
	Text string `json:"text"`

	// Confidence is the engine's certainty in [0, 1].
	Confidence float64 `json:"confidence"`

	// Box locates the word in the submitted raster.
	Box Bounds `json:"box"`

	// LineKey groups words that the engine placed on one text line.
	// Consecutive words with equal keys share a line.
	LineKey string `json:"line_key"`
}

// Token is a cleaned word positioned inside RecognizedText.FullText.
type Token struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`

	// Page is the 0-based page the token came from.
	Page int `json:"page"`

	// Line is the 0-based line index across the whole text.
	Line int `json:"line"`

	// Start and End are byte offsets of Text within FullText.
	Start int `json:"start"`
	End   int `json:"end"`
}

// RecognizedText is the recognizer output for one or more pages.
type RecognizedText struct {
	FullText string  `json:"full_text"`
	Tokens   []Token `json:"tokens"`
}

// Overlapping returns the tokens whose byte span intersects [start, end).
// An empty range overlaps nothing.
func (rt *RecognizedText) Overlapping(start, end int) []Token {
	if rt == nil || end <= start {
		return nil
	}
	var out []Token
	for _, t := range rt.Tokens {
		if t.Start < end && t.End > start {
			out = append(out, t)
		}
	}
	return out
}

// MeanConfidence averages the confidence of tokens overlapping [start, end).
// It returns 0 when no token overlaps.
func (rt *RecognizedText) MeanConfidence(start, end int) float64 {
	toks := rt.Overlapping(start, end)
	if len(toks) == 0 {
		return 0
	}
	var sum float64
	for _, t := range toks {
		sum += t.Confidence
	}
	return sum / float64(len(toks))
}

// Assemble builds RecognizedText from cleaned words. Words on the same line
// are joined by one space and lines by a newline, so every token's offsets
// point at its exact text.
func Assemble(words []Word, page int) *RecognizedText {
	var b strings.Builder
	rt := &RecognizedText{Tokens: make([]Token, 0, len(words))}
	line := -1
	prevKey := ""
	for _, w := range words {
		if w.Text == "" {
			continue
		}
		switch {
		case line < 0:
			line = 0
		case w.LineKey != prevKey:
			b.WriteByte('\n')
			line++
		default:
			b.WriteByte(' ')
		}
		prevKey = w.LineKey

		start := b.Len()
		b.WriteString(w.Text)
		rt.Tokens = append(rt.Tokens, Token{
			Text:       w.Text,
			Confidence: w.Confidence,
			Bounds:     w.Box,
			Page:       page,
			Line:       line,
			Start:      start,
			End:        b.Len(),
		})
	}
	rt.FullText = b.String()
	return rt
}

// JoinPages concatenates per-page results with PageSeparator, shifting token
// offsets and line indexes. Nil pages contribute empty text.
func JoinPages(pages []*RecognizedText) *RecognizedText {
	var b strings.Builder
	out := &RecognizedText{}
	lineBase := 0
	for i, p := range pages {
		if i > 0 {
			b.WriteString(PageSeparator)
		}
		if p == nil {
			continue
		}
		offset := b.Len()
		maxLine := -1
		for _, t := range p.Tokens {
			t.Start += offset
			t.End += offset
			t.Line += lineBase
			t.Page = i
			if t.Line > maxLine {
				maxLine = t.Line
			}
			out.Tokens = append(out.Tokens, t)
		}
		if maxLine >= 0 {
			lineBase = maxLine + 1
		}
		b.WriteString(p.FullText)
	}
	out.FullText = b.String()
	return out
}
