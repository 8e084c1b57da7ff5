//go:build !cgo

package ocr

import (
	"context"
	"fmt"

	"github.com/ironsheep/label-compliance/internal/common"
)

// TesseractEngine is unavailable in builds without cgo. Select the
// tesseract-cli engine instead.
type TesseractEngine struct {
	Language    string
	PSM         int
	TessdataDir string
}

// NewTesseractEngine returns an engine that always reports ErrUnavailable.
func NewTesseractEngine(cfg common.OCRConfig) *TesseractEngine {
	return &TesseractEngine{Language: cfg.Language, PSM: cfg.PSM, TessdataDir: cfg.TessdataDir}
}

func (e *TesseractEngine) Name() string { return "gosseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, img []byte, width, height int) ([]Word, error) {
	return nil, fmt.Errorf("%w: built without cgo", ErrUnavailable)
}

func (e *TesseractEngine) RecognizeMode(ctx context.Context, img []byte, width, height, psm int) ([]Word, error) {
	return e.Recognize(ctx, img, width, height)
}

func (e *TesseractEngine) Info(ctx context.Context) Info {
	return Info{
		Backend:  "gosseract",
		Language: e.Language,
		Error:    "built without cgo; set LABEL_OCR_ENGINE=tesseract-cli",
	}
}
