package ocr

import (
	"context"
	"errors"
	"strings"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/runner"
)

// ErrUnavailable is wrapped by engines that cannot run at all: the native
// library is missing, the binary is not installed, or language data fails to
// load. The Recognizer maps it to common.ErrEngineUnavailable.
var ErrUnavailable = errors.New("ocr engine unavailable")

// Engine recognizes words in one page image.
//
// image is the page encoded as PNG; width and height are its pixel size.
// Words are returned in reading order. Implementations must return promptly
// with ctx.Err() once ctx is done.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, image []byte, width, height int) ([]Word, error)
	Info(ctx context.Context) Info
}

// ModeEngine is an Engine that accepts a page segmentation mode per call
// instead of its configured one.
type ModeEngine interface {
	Engine
	RecognizeMode(ctx context.Context, image []byte, width, height, psm int) ([]Word, error)
}

// Info contains information about the OCR subsystem.
type Info struct {
	Available    bool   `json:"available"`
	Version      string `json:"version,omitempty"`
	Error        string `json:"error,omitempty"`
	Backend      string `json:"backend"`
	Language     string `json:"language"`
	BinaryPath   string `json:"binary_path,omitempty"`
	TessdataPath string `json:"tessdata_path,omitempty"`
}

// NewEngine selects the engine named in cfg.Engine.
func NewEngine(cfg common.OCRConfig, r runner.Runner) (Engine, error) {
	switch cfg.Engine {
	case common.EngineGosseract, "":
		return NewTesseractEngine(cfg), nil
	case common.EngineTesseractCLI:
		return NewCLIEngine(cfg, r), nil
	default:
		return nil, common.Errorf(common.CodeConfiguration, "unknown OCR engine %q", cfg.Engine)
	}
}

// isInitFailure recognizes libtesseract start-up errors, which mean missing
// or unreadable traineddata rather than a bad image.
func isInitFailure(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "initialize TessBaseAPI") ||
		strings.Contains(msg, "Failed loading language") ||
		strings.Contains(msg, "Error opening data file")
}
