package ocr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestAssemble(t *testing.T) {
	words := []Word{
		{Text: "MRP", Confidence: 0.9, LineKey: "1.1.1.1"},
		{Text: "₹150", Confidence: 0.8, LineKey: "1.1.1.1"},
		{Text: "Net", Confidence: 0.7, LineKey: "1.1.1.2"},
		{Text: "", Confidence: 0.1, LineKey: "1.1.1.2"},
		{Text: "500g", Confidence: 0.6, LineKey: "1.1.1.2"},
	}

	rt := Assemble(words, 0)
	if rt.FullText != "MRP ₹150\nNet 500g" {
		t.Fatalf("FullText = %q", rt.FullText)
	}
	if len(rt.Tokens) != 4 {
		t.Fatalf("len(Tokens) = %d, want 4", len(rt.Tokens))
	}
	for _, tok := range rt.Tokens {
		if got := rt.FullText[tok.Start:tok.End]; got != tok.Text {
			t.Errorf("FullText[%d:%d] = %q, want %q", tok.Start, tok.End, got, tok.Text)
		}
	}
	if rt.Tokens[1].Line != 0 || rt.Tokens[2].Line != 1 {
		t.Errorf("line indexes = %d, %d; want 0, 1", rt.Tokens[1].Line, rt.Tokens[2].Line)
	}
}

func TestAssemble_Empty(t *testing.T) {
	rt := Assemble(nil, 0)
	if rt.FullText != "" || len(rt.Tokens) != 0 {
		t.Errorf("Assemble(nil) = %+v", rt)
	}
}

func TestJoinPages(t *testing.T) {
	p1 := Assemble([]Word{{Text: "one", Confidence: 1, LineKey: "a"}, {Text: "two", Confidence: 1, LineKey: "b"}}, 0)
	p2 := Assemble([]Word{{Text: "three", Confidence: 0.5, LineKey: "a"}}, 0)

	joined := JoinPages([]*RecognizedText{p1, nil, p2})
	want := "one\ntwo" + PageSeparator + PageSeparator + "three"
	if joined.FullText != want {
		t.Fatalf("FullText = %q, want %q", joined.FullText, want)
	}

	last := joined.Tokens[len(joined.Tokens)-1]
	if joined.FullText[last.Start:last.End] != "three" {
		t.Errorf("shifted token points at %q", joined.FullText[last.Start:last.End])
	}
	if last.Page != 2 {
		t.Errorf("Page = %d, want 2", last.Page)
	}
	if last.Line != 2 {
		t.Errorf("Line = %d, want 2 (after two lines on page 0)", last.Line)
	}
}

func TestOverlappingAndMeanConfidence(t *testing.T) {
	rt := Assemble([]Word{
		{Text: "MRP:", Confidence: 0.9, LineKey: "1"},
		{Text: "Rs.", Confidence: 0.5, LineKey: "1"},
		{Text: "99", Confidence: 0.7, LineKey: "1"},
	}, 0)
	// "MRP: Rs. 99"

	tests := []struct {
		name       string
		start, end int
		wantTexts  []string
		wantMean   float64
	}{
		{"whole", 0, len(rt.FullText), []string{"MRP:", "Rs.", "99"}, 0.7},
		{"partial first", 2, 3, []string{"MRP:"}, 0.9},
		{"spans separator", 3, 6, []string{"MRP:", "Rs."}, 0.7},
		{"only whitespace", 4, 5, nil, 0},
		{"empty range", 2, 2, nil, 0},
		{"inverted range", 6, 2, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var texts []string
			for _, tok := range rt.Overlapping(tt.start, tt.end) {
				texts = append(texts, tok.Text)
			}
			if diff := cmp.Diff(tt.wantTexts, texts); diff != "" {
				t.Errorf("Overlapping mismatch (-want +got):\n%s", diff)
			}
			if got := rt.MeanConfidence(tt.start, tt.end); abs(got-tt.wantMean) > 1e-9 {
				t.Errorf("MeanConfidence = %v, want %v", got, tt.wantMean)
			}
		})
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}
