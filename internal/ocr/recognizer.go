package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/imaging"
)

// DefaultTimeout bounds a single page recognition.
const DefaultTimeout = 60 * time.Second

// Recognizer adapts an Engine to normalized rasters and the application's
// error taxonomy.
type Recognizer struct {
	engine  Engine
	timeout time.Duration
	modes   []int
	logger  *slog.Logger
}

// Option configures a Recognizer.
type Option func(*Recognizer)

// WithModes lists page segmentation modes to try on each page, in order.
// It applies only to engines implementing ModeEngine; the output with the
// highest mean word confidence wins and earlier modes win ties.
func WithModes(modes ...int) Option {
	return func(r *Recognizer) {
		r.modes = append([]int(nil), modes...)
	}
}

// NewRecognizer wraps engine. A non-positive timeout selects DefaultTimeout.
func NewRecognizer(engine Engine, timeout time.Duration, logger *slog.Logger, opts ...Option) *Recognizer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Recognizer{engine: engine, timeout: timeout, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// EngineName returns the name of the wrapped engine.
func (r *Recognizer) EngineName() string { return r.engine.Name() }

// Info reports the wrapped engine's availability.
func (r *Recognizer) Info(ctx context.Context) Info { return r.engine.Info(ctx) }

// Recognize extracts cleaned, positioned tokens from one raster.
//
// # Errors
//
//   - common.ErrEngineUnavailable when the engine cannot run at all
//   - common.ErrRecognitionTimeout when the recognizer's timeout or the
//     caller's deadline expires first
//   - common.ErrRecognitionFailed for any other engine failure
//
// Cancellation by the caller is returned as context.Canceled.
func (r *Recognizer) Recognize(ctx context.Context, raster *imaging.Raster) (*RecognizedText, error) {
	if err := raster.Validate(); err != nil {
		return nil, common.NewAppError(common.CodeRecognitionFailed, "invalid raster", err)
	}

	var buf bytes.Buffer
	if err := raster.EncodePNG(&buf); err != nil {
		return nil, common.NewAppError(common.CodeRecognitionFailed, "encode page", err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	words, err := r.recognizeWords(ctx, buf.Bytes(), raster.Width, raster.Height)
	buf.Reset()
	if err != nil {
		return nil, r.mapError(ctx, err)
	}

	r.logger.Debug("page recognized",
		"engine", r.engine.Name(),
		"words", len(words),
		"duration_ms", time.Since(start).Milliseconds())
	return Assemble(words, 0), nil
}

// recognizeWords returns cleaned words. With several modes configured, a
// failing mode is skipped unless the engine is unavailable or ctx is done.
func (r *Recognizer) recognizeWords(ctx context.Context, img []byte, width, height int) ([]Word, error) {
	me, ok := r.engine.(ModeEngine)
	if !ok || len(r.modes) == 0 {
		words, err := r.engine.Recognize(ctx, img, width, height)
		if err != nil {
			return nil, err
		}
		return CleanWords(words), nil
	}

	var (
		best      []Word
		bestConf  = -1.0
		lastErr   error
		succeeded bool
	)
	for _, psm := range r.modes {
		words, err := me.RecognizeMode(ctx, img, width, height, psm)
		if err != nil {
			if errors.Is(err, ErrUnavailable) || ctx.Err() != nil {
				return nil, err
			}
			r.logger.Debug("segmentation mode failed", "psm", psm, "error", err)
			lastErr = err
			continue
		}
		succeeded = true
		cleaned := CleanWords(words)
		conf := meanWordConfidence(cleaned)
		r.logger.Debug("segmentation mode recognized", "psm", psm, "words", len(cleaned), "mean_confidence", conf)
		if len(cleaned) > 0 && conf > bestConf {
			best, bestConf = cleaned, conf
		}
	}
	if !succeeded {
		return nil, lastErr
	}
	return best, nil
}

func meanWordConfidence(words []Word) float64 {
	if len(words) == 0 {
		return 0
	}
	var sum float64
	for _, w := range words {
		sum += w.Confidence
	}
	return sum / float64(len(words))
}

func (r *Recognizer) mapError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, ErrUnavailable):
		return common.NewAppError(common.CodeEngineUnavailable, r.engine.Name(), err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return common.NewAppError(common.CodeRecognitionTimeout,
			"recognition exceeded "+r.timeout.String(), err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return common.NewAppError(common.CodeRecognitionFailed, r.engine.Name(), err)
	}
}
