package compliance

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/document"
	"github.com/ironsheep/label-compliance/internal/extract"
	"github.com/ironsheep/label-compliance/internal/imaging"
	"github.com/ironsheep/label-compliance/internal/ocr"
	"github.com/ironsheep/label-compliance/internal/rules"
)

// Deps are the collaborators of a Checker. Rules and Recognizer are
// required; the rest default.
type Deps struct {
	Rules        *rules.RuleSet
	Normalizer   *imaging.Normalizer
	Rasterizer   *document.Rasterizer
	Recognizer   *ocr.Recognizer
	MaxDimension int
	MinDimension int
	MaxBytes     int
	Logger       *slog.Logger
}

// Checker runs the full pipeline for one input at a time. It holds only
// immutable collaborators and is safe for concurrent use.
type Checker struct {
	rules        *rules.RuleSet
	normalizer   *imaging.Normalizer
	rasterizer   *document.Rasterizer
	recognizer   *ocr.Recognizer
	maxDimension int
	minDimension int
	maxBytes     int
	logger       *slog.Logger
}

// New builds a Checker.
func New(d Deps) (*Checker, error) {
	if d.Rules == nil {
		return nil, common.Errorf(common.CodeConfiguration, "no rules loaded")
	}
	if d.Recognizer == nil {
		return nil, common.Errorf(common.CodeConfiguration, "no recognizer configured")
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Normalizer == nil {
		d.Normalizer = imaging.DefaultNormalizer(imaging.DefaultOptions(), d.Logger)
	}
	if d.Rasterizer == nil {
		d.Rasterizer = document.NewRasterizer(common.DocumentConfig{}, d.MaxDimension, nil, d.Logger)
	}
	return &Checker{
		rules:        d.Rules,
		normalizer:   d.Normalizer,
		rasterizer:   d.Rasterizer,
		recognizer:   d.Recognizer,
		maxDimension: d.MaxDimension,
		minDimension: d.MinDimension,
		maxBytes:     d.MaxBytes,
		logger:       d.Logger,
	}, nil
}

// Rules returns the rule set the checker scores against.
func (c *Checker) Rules() *rules.RuleSet { return c.rules }

// EngineInfo reports the recognition engine's availability.
func (c *Checker) EngineInfo(ctx context.Context) ocr.Info { return c.recognizer.Info(ctx) }

// Check dispatches on mimeType: application/pdf is checked as a document,
// supported image types as a single image.
func (c *Checker) Check(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	base, _, _ := mime.ParseMediaType(mimeType)
	switch {
	case base == document.MIMEPDF:
		return c.CheckDocument(ctx, data)
	case imaging.SupportedMIME(mimeType):
		return c.CheckImage(ctx, data, mimeType)
	default:
		return nil, common.Errorf(common.CodeUnsupportedImageFormat, "unsupported input type %q", mimeType)
	}
}

// CheckFile reads path and checks it. The type is sniffed from the content,
// falling back to the file extension.
func (c *Checker) CheckFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return c.Check(ctx, data, DetectMIME(path, data))
}

// DetectMIME sniffs data and falls back to the extension of name when the
// content is not recognized.
func DetectMIME(name string, data []byte) string {
	sniffed, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	if sniffed == document.MIMEPDF || imaging.SupportedMIME(sniffed) {
		return sniffed
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(name))); byExt != "" {
		base, _, _ := mime.ParseMediaType(byExt)
		return base
	}
	return sniffed
}

// CheckImage checks a single JPEG, PNG or WebP image.
//
// # Errors
//
//   - common.ErrUnsupportedImageFormat for undecodable input, images
//     smaller than the minimum dimension, or files over the byte limit
//   - common.ErrRecognitionTimeout, common.ErrRecognitionFailed
//
// An unavailable engine is not an error: the synthetic fallback result is
// returned instead.
func (c *Checker) CheckImage(ctx context.Context, data []byte, mimeType string) (*Result, error) {
	run := c.startRun("image")

	if err := imaging.CheckSuitable(data, c.minDimension, c.maxBytes); err != nil {
		return nil, run.fail(err)
	}
	raster, err := imaging.Decode(data, mimeType, c.maxDimension)
	if err != nil {
		return nil, run.fail(err)
	}
	text, err := c.recognizeRaster(ctx, run.logger, raster)
	if errors.Is(err, common.ErrEngineUnavailable) {
		return run.fallback(c.rules, err), nil
	}
	if err != nil {
		return nil, run.fail(err)
	}
	return run.finish(c.build(text, 1)), nil
}

// CheckDocument checks every page of a PDF, rendering one page at a time.
//
// A page that fails to render or recognize is skipped with a warning; the
// check fails with common.ErrRecognitionFailed only when every page fails.
// Timeouts and format errors abort the check. An unavailable engine yields
// the synthetic fallback result.
func (c *Checker) CheckDocument(ctx context.Context, data []byte) (*Result, error) {
	run := c.startRun("document")

	pages, err := c.rasterizer.Open(ctx, data)
	if err != nil {
		return nil, run.fail(err)
	}
	defer pages.Close()

	texts := make([]*ocr.RecognizedText, 0, pages.Count())
	var skipped []int
	var warnings []string
	skip := func(n int, err error) {
		run.logger.Warn("page skipped", "page", n, "error", err)
		skipped = append(skipped, n)
		warnings = append(warnings, fmt.Sprintf("page %d skipped: %v", n, err))
		texts = append(texts, nil)
	}

	for {
		page, err := pages.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		var pe *document.PageError
		if errors.As(err, &pe) {
			skip(pe.Number, pe.Err)
			continue
		}
		if err != nil {
			return nil, run.fail(err)
		}

		text, err := c.recognizeRaster(ctx, run.logger.With("page", page.Number), page.Raster)
		page.Raster = nil
		switch {
		case errors.Is(err, common.ErrEngineUnavailable):
			return run.fallback(c.rules, err), nil
		case errors.Is(err, common.ErrRecognitionFailed), errors.Is(err, common.ErrUnsupportedImageFormat):
			skip(page.Number, err)
		case err != nil:
			return nil, run.fail(err)
		default:
			texts = append(texts, text)
		}
	}

	if len(skipped) == pages.Count() {
		err := common.Errorf(common.CodeRecognitionFailed, "all %d pages failed", pages.Count())
		return nil, run.fail(err)
	}

	res := c.build(ocr.JoinPages(texts), pages.Count())
	res.skippedPages = skipped
	res.warnings = warnings
	if pages.Total() > pages.Count() {
		res.warnings = append(res.warnings,
			fmt.Sprintf("only the first %d of %d pages were checked", pages.Count(), pages.Total()))
	}
	return run.finish(res), nil
}

func (c *Checker) recognizeRaster(ctx context.Context, logger *slog.Logger, raster *imaging.Raster) (*ocr.RecognizedText, error) {
	normalized, err := c.normalizer.Normalize(ctx, raster)
	if err != nil {
		return nil, err
	}
	text, err := c.recognizer.Recognize(ctx, normalized)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text.FullText) == "" {
		// Preprocessing can erase faint print; try the page as decoded.
		logger.Debug("no text after preprocessing, retrying on the original raster")
		text, err = c.recognizer.Recognize(ctx, raster)
		if err != nil {
			return nil, err
		}
	}
	logger.Debug("text recognized", "tokens", len(text.Tokens), "chars", len(text.FullText))
	return text, nil
}

func (c *Checker) build(text *ocr.RecognizedText, pages int) *Result {
	fields := extract.Extract(text, c.rules.Rules)
	return newResult(c.rules, text.FullText, fields, pages)
}

type run struct {
	id     string
	start  time.Time
	logger *slog.Logger
}

func (c *Checker) startRun(kind string) *run {
	id := uuid.NewString()
	r := &run{
		id:     id,
		start:  time.Now(),
		logger: c.logger.With("run_id", id, "input", kind),
	}
	r.logger.Debug("check started", "engine", c.recognizer.EngineName())
	return r
}

func (r *run) finish(res *Result) *Result {
	res.runID = r.id
	r.logger.Info("check complete",
		"score", res.score,
		"status", res.status,
		"detected", res.DetectedCount(),
		"fields", len(res.fields),
		"pages", res.pages,
		"skipped_pages", len(res.skippedPages),
		"duration_ms", time.Since(r.start).Milliseconds())
	return res
}

func (r *run) fallback(rs *rules.RuleSet, cause error) *Result {
	r.logger.Warn("recognition engine unavailable, returning synthetic result", "error", cause)
	return r.finish(Fallback(rs))
}

func (r *run) fail(err error) error {
	r.logger.Error("check failed",
		"code", common.CodeOf(err),
		"error", err,
		"duration_ms", time.Since(r.start).Milliseconds())
	return err
}
