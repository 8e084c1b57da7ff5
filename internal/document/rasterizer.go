package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/imaging"
	"github.com/ironsheep/label-compliance/internal/runner"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Defaults applied by NewRasterizer to zero config values.
const (
	DefaultDPI     = 300
	DefaultTimeout = 60 * time.Second
)

// MIMEPDF is the only document type accepted.
const MIMEPDF = "application/pdf"

var disableConfigDir sync.Once

// Rasterizer renders PDF pages to rasters with pdftoppm, one page at a time.
// It holds no per-document state and is safe for concurrent use.
type Rasterizer struct {
	bin          string
	dpi          int
	maxPages     int
	timeout      time.Duration
	maxDimension int
	runner       runner.Runner
	logger       *slog.Logger
}

// NewRasterizer builds a Rasterizer. maxDimension bounds rendered page size
// the same way imaging.Decode bounds uploaded images.
func NewRasterizer(cfg common.DocumentConfig, maxDimension int, r runner.Runner, logger *slog.Logger) *Rasterizer {
	if r == nil {
		r = runner.Exec{Logger: logger}
	}
	if logger == nil {
		logger = slog.Default()
	}
	rz := &Rasterizer{
		bin:          cfg.PdftoppmBin,
		dpi:          cfg.DPI,
		maxPages:     cfg.MaxPages,
		timeout:      cfg.Timeout,
		maxDimension: maxDimension,
		runner:       r,
		logger:       logger,
	}
	if rz.bin == "" {
		rz.bin = "pdftoppm"
	}
	if rz.dpi <= 0 {
		rz.dpi = DefaultDPI
	}
	if rz.timeout <= 0 {
		rz.timeout = DefaultTimeout
	}
	return rz
}

// PageCount validates data with pdfcpu and returns its number of pages.
func PageCount(data []byte) (n int, err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), []byte("%PDF-")) {
		return 0, common.Errorf(common.CodeUnsupportedDocumentFormat, "missing %%PDF header")
	}

	disableConfigDir.Do(api.DisableConfigDir)

	// pdfcpu panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			n = 0
			err = common.Errorf(common.CodeUnsupportedDocumentFormat, "malformed PDF: %v", r)
		}
	}()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), conf)
	if err != nil {
		return 0, common.NewAppError(common.CodeUnsupportedDocumentFormat, "failed to read and validate PDF", err)
	}
	if ctx.PageCount <= 0 {
		return 0, common.Errorf(common.CodeUnsupportedDocumentFormat, "document has no pages")
	}
	return ctx.PageCount, nil
}

// Open validates a PDF and prepares it for page-by-page rendering. The
// returned Pages must be closed to remove the working directory.
func (rz *Rasterizer) Open(ctx context.Context, data []byte) (*Pages, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	total, err := PageCount(data)
	if err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp("", "label-doc-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	pdfPath := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(pdfPath, data, 0o600); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}

	count := total
	if rz.maxPages > 0 && count > rz.maxPages {
		count = rz.maxPages
		rz.logger.Info("page limit applied", "pages", total, "max_pages", rz.maxPages)
	}
	return &Pages{rz: rz, dir: dir, pdfPath: pdfPath, total: total, count: count}, nil
}

// Page is one rendered page.
type Page struct {
	// Number is 1-based.
	Number int
	Raster *imaging.Raster
}

// PageError reports a page that failed to render. Later pages may still
// succeed, so callers can skip it and continue.
type PageError struct {
	Number int
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Number, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// Pages is a lazy sequence of rendered pages. It is not safe for concurrent
// use.
type Pages struct {
	rz      *Rasterizer
	dir     string
	pdfPath string
	total   int
	count   int
	next    int
	closed  bool
}

// Count is the number of pages Next will yield.
func (p *Pages) Count() int { return p.count }

// Total is the page count of the document before MaxPages was applied.
func (p *Pages) Total() int { return p.total }

// Next renders the next page. It returns io.EOF after the last page.
//
// # Errors
//
//   - *PageError: this page failed; the sequence advances past it
//   - common.ErrRasterizationTimeout: the render exceeded the timeout or the
//     caller's deadline
//   - common.ErrUnsupportedDocumentFormat: pdftoppm is not installed
//   - ctx.Err() when the caller cancels
func (p *Pages) Next(ctx context.Context) (*Page, error) {
	if p.closed || p.next >= p.count {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, p.ctxError(err)
	}
	p.next++
	n := p.next

	rctx, cancel := context.WithTimeout(ctx, p.rz.timeout)
	defer cancel()

	prefix := filepath.Join(p.dir, fmt.Sprintf("page-%d", n))
	start := time.Now()
	_, stderr, err := p.rz.runner.Run(rctx, nil, p.rz.bin,
		"-r", strconv.Itoa(p.rz.dpi),
		"-f", strconv.Itoa(n),
		"-l", strconv.Itoa(n),
		"-png", "-singlefile",
		p.pdfPath, prefix)
	if err != nil {
		switch {
		case rctx.Err() != nil:
			return nil, p.ctxError(rctx.Err())
		case runner.IsNotFound(err):
			return nil, common.NewAppError(common.CodeUnsupportedDocumentFormat,
				"pdf renderer "+p.rz.bin+" is not installed", err)
		default:
			return nil, &PageError{Number: n, Err: fmt.Errorf("%w: %s", err, bytes.TrimSpace(stderr))}
		}
	}

	pngPath := prefix + ".png"
	data, err := os.ReadFile(pngPath)
	os.Remove(pngPath)
	if err != nil {
		return nil, &PageError{Number: n, Err: fmt.Errorf("renderer produced no image: %w", err)}
	}
	raster, err := imaging.Decode(data, imaging.MIMEPNG, p.rz.maxDimension)
	if err != nil {
		return nil, &PageError{Number: n, Err: err}
	}

	p.rz.logger.Debug("page rasterized", "page", n, "of", p.count,
		"width", raster.Width, "height", raster.Height,
		"duration_ms", time.Since(start).Milliseconds())
	return &Page{Number: n, Raster: raster}, nil
}

func (p *Pages) ctxError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewAppError(common.CodeRasterizationTimeout,
			fmt.Sprintf("rendering page %d", p.next), err)
	}
	return err
}

// Close removes the working directory. It is safe to call more than once.
func (p *Pages) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	return os.RemoveAll(p.dir)
}
