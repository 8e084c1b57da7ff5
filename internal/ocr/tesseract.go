//go:build cgo

package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/otiai10/gosseract/v2"
)

const gosseractBackend = "gosseract"

// blankPage encodes a small white page used to force client initialization.
func blankPage() ([]byte, error) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// TesseractEngine runs libtesseract in-process through gosseract.
// Each call creates its own client, so the engine is safe for concurrent use.
type TesseractEngine struct {
	Language    string
	PSM         int
	TessdataDir string

	clientFactory func() *gosseract.Client
}

// NewTesseractEngine builds the in-process engine from the OCR config.
func NewTesseractEngine(cfg common.OCRConfig) *TesseractEngine {
	return &TesseractEngine{
		Language:      cfg.Language,
		PSM:           cfg.PSM,
		TessdataDir:   cfg.TessdataDir,
		clientFactory: gosseract.NewClient,
	}
}

func (e *TesseractEngine) Name() string { return gosseractBackend }

// Recognize performs OCR on a PNG-encoded page.
//
// libtesseract cannot be interrupted, so recognition runs on its own goroutine
// and Recognize returns ctx.Err() as soon as ctx is done. The abandoned
// goroutine finishes in the background and frees its client.
func (e *TesseractEngine) Recognize(ctx context.Context, img []byte, width, height int) ([]Word, error) {
	return e.RecognizeMode(ctx, img, width, height, e.PSM)
}

// RecognizeMode is Recognize with an explicit page segmentation mode.
func (e *TesseractEngine) RecognizeMode(ctx context.Context, img []byte, width, height, psm int) ([]Word, error) {
	type result struct {
		words []Word
		err   error
	}
	done := make(chan result, 1)
	go func() {
		words, err := e.recognize(img, psm)
		done <- result{words, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		return r.words, r.err
	}
}

func (e *TesseractEngine) recognize(img []byte, psm int) ([]Word, error) {
	client := e.clientFactory()
	defer client.Close()

	if err := e.configure(client, psm); err != nil {
		return nil, err
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	lines, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		if isInitFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		return nil, fmt.Errorf("OCR failed: %w", err)
	}
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	words := make([]Word, 0, len(boxes))
	for _, box := range boxes {
		if box.Word == "" {
			continue
		}
		words = append(words, Word{
			Text:       box.Word,
			Confidence: box.Confidence / 100.0,
			Box: Bounds{
				X1: box.Box.Min.X,
				Y1: box.Box.Min.Y,
				X2: box.Box.Max.X,
				Y2: box.Box.Max.Y,
			},
			LineKey: lineKeyFor(box.Box, lines),
		})
	}
	return words, nil
}

func (e *TesseractEngine) configure(client *gosseract.Client, psm int) error {
	if e.TessdataDir != "" {
		if err := client.SetTessdataPrefix(e.TessdataDir); err != nil {
			return fmt.Errorf("%w: tessdata prefix: %v", ErrUnavailable, err)
		}
	}
	if err := client.SetLanguage(e.Language); err != nil {
		return fmt.Errorf("failed to set language: %w", err)
	}
	if psm > 0 {
		if err := client.SetPageSegMode(gosseract.PageSegMode(psm)); err != nil {
			return fmt.Errorf("failed to set page segmentation mode: %w", err)
		}
	}
	return nil
}

// lineKeyFor names the text line whose box contains the word's centre.
func lineKeyFor(word image.Rectangle, lines []gosseract.BoundingBox) string {
	c := image.Pt((word.Min.X+word.Max.X)/2, (word.Min.Y+word.Max.Y)/2)
	for i, l := range lines {
		if c.In(l.Box) {
			return fmt.Sprintf("l%d", i)
		}
	}
	return fmt.Sprintf("y%d", word.Min.Y)
}

// Info reports whether libtesseract starts with the configured language.
func (e *TesseractEngine) Info(ctx context.Context) Info {
	info := Info{Backend: gosseractBackend, Language: e.Language, TessdataPath: e.TessdataDir}

	client := e.clientFactory()
	defer client.Close()
	info.Version = client.Version()

	if err := e.configure(client, e.PSM); err != nil {
		info.Error = err.Error()
		return info
	}
	// Initialization happens lazily; a blank image forces it.
	blank, err := blankPage()
	if err != nil {
		info.Error = err.Error()
		return info
	}
	if err := client.SetImageFromBytes(blank); err != nil {
		info.Error = err.Error()
		return info
	}
	if _, err := client.Text(); err != nil {
		info.Error = err.Error()
		return info
	}
	info.Available = true
	return info
}
