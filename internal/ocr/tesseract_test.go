//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"strings"
	"testing"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// drawText draws text on an image using basicfont
func drawText(img *image.RGBA, x, y int, text string, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

// renderLines draws each line with basicfont and scales the result up so
// Tesseract has enough pixels per glyph.
func renderLines(t *testing.T, lines []string, scale int) []byte {
	t.Helper()

	maxLen := 0
	for _, l := range lines {
		maxLen = max(maxLen, len(l))
	}
	w, h := maxLen*7+40, len(lines)*16+30

	small := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(small, small.Bounds(), image.White, image.Point{}, draw.Src)
	for i, l := range lines {
		drawText(small, 20, 20+i*16, l, color.Black)
	}

	big := image.NewRGBA(image.Rect(0, 0, w*scale, h*scale))
	for y := 0; y < h*scale; y++ {
		for x := 0; x < w*scale; x++ {
			big.Set(x, y, small.At(x/scale, y/scale))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatalf("failed to encode image: %v", err)
	}
	return buf.Bytes()
}

func newTestEngine(t *testing.T) *TesseractEngine {
	t.Helper()
	e := NewTesseractEngine(common.OCRConfig{Language: "eng", PSM: 6})
	if info := e.Info(context.Background()); !info.Available {
		t.Skipf("Tesseract not available: %s", info.Error)
	}
	return e
}

func TestTesseractEngine_Recognize(t *testing.T) {
	e := newTestEngine(t)

	img := renderLines(t, []string{"MRP 150", "NET WT 500 G"}, 4)
	words, err := e.Recognize(context.Background(), img, 0, 0)
	if err != nil {
		t.Fatalf("Recognize failed: %v", err)
	}
	if len(words) == 0 {
		t.Fatal("no words recognized")
	}

	rt := Assemble(CleanWords(words), 0)
	if !strings.Contains(rt.FullText, "150") {
		t.Errorf("FullText %q does not contain 150", rt.FullText)
	}
	if !strings.Contains(rt.FullText, "\n") {
		t.Errorf("two rendered lines should produce two text lines, got %q", rt.FullText)
	}
	for _, w := range words {
		if w.Confidence < 0 || w.Confidence > 1 {
			t.Errorf("confidence %v out of range for %q", w.Confidence, w.Text)
		}
	}
}

func TestTesseractEngine_BadLanguage(t *testing.T) {
	newTestEngine(t)

	e := NewTesseractEngine(common.OCRConfig{Language: "zzz_not_a_language", PSM: 6})
	_, err := e.Recognize(context.Background(), renderLines(t, []string{"X"}, 2), 0, 0)
	if err == nil {
		t.Fatal("expected error for missing language data")
	}
}

func TestTesseractEngine_Cancelled(t *testing.T) {
	e := NewTesseractEngine(common.OCRConfig{Language: "eng"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := e.Recognize(ctx, nil, 0, 0); err == nil {
		t.Error("expected an error for a cancelled context or empty image")
	}
}

func TestLineKeyFor(t *testing.T) {
	lines := []gosseract.BoundingBox{
		{Box: image.Rect(0, 0, 200, 20)},
		{Box: image.Rect(0, 30, 200, 50)},
	}
	tests := []struct {
		word image.Rectangle
		want string
	}{
		{image.Rect(10, 2, 40, 18), "l0"},
		{image.Rect(50, 31, 90, 49), "l1"},
		{image.Rect(10, 60, 40, 70), "y60"},
	}
	for _, tt := range tests {
		if got := lineKeyFor(tt.word, lines); got != tt.want {
			t.Errorf("lineKeyFor(%v) = %q, want %q", tt.word, got, tt.want)
		}
	}
}
