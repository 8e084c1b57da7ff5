package imaging

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ironsheep/label-compliance/internal/common"
	"github.com/ironsheep/label-compliance/internal/detection"
)

// Options configures the default pipeline.
type Options struct {
	Upscale        bool
	UpscaleMinSide int
	MaxDimension   int
	Grayscale      string
	BlurRadius     float64
	// ClipLimit enables the contrast stage when positive.
	ClipLimit    float64
	ContrastGrid int
	BlockSize    int
	C            int
	// MorphRadius enables the morphology stage when positive.
	MorphRadius float64
	MinSkew     float64
	MaxSkew     float64
}

// DefaultOptions returns the pipeline settings used for label photographs.
func DefaultOptions() Options {
	return Options{
		Upscale:        true,
		UpscaleMinSide: 300,
		MaxDimension:   DefaultMaxDimension,
		Grayscale:      GrayscaleLuma,
		BlurRadius:     1.0,
		ClipLimit:      2.0,
		ContrastGrid:   8,
		BlockSize:      15,
		C:              3,
		MorphRadius:    0.5,
		MinSkew:        0.5,
		MaxSkew:        45,
	}
}

// OptionsFromConfig overlays the image section of the application config on
// DefaultOptions.
func OptionsFromConfig(cfg common.ImageConfig) Options {
	opts := DefaultOptions()
	opts.Upscale = cfg.Upscale
	if cfg.MaxDimension > 0 {
		opts.MaxDimension = cfg.MaxDimension
	}
	if cfg.Grayscale != "" {
		opts.Grayscale = strings.ToLower(strings.TrimSpace(cfg.Grayscale))
	}
	if !cfg.Contrast {
		opts.ClipLimit = 0
	}
	if !cfg.Morphology {
		opts.MorphRadius = 0
	}
	return opts
}

// Normalizer runs an ordered list of stages over a raster.
// It holds no mutable state and is safe for concurrent use.
type Normalizer struct {
	stages []Stage
	logger *slog.Logger
}

// NewNormalizer builds a pipeline from explicit stages.
//
// A threshold stage must be preceded by a denoise stage; binarizing unsmoothed
// sensor noise produces speckle that the recognizer reads as punctuation.
// Pass allowUnsmoothed to build such a pipeline anyway.
func NewNormalizer(logger *slog.Logger, allowUnsmoothed bool, stages ...Stage) (*Normalizer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if !allowUnsmoothed {
		denoised := false
		for _, s := range stages {
			switch s.Name() {
			case StageDenoise:
				denoised = true
			case StageThreshold:
				if !denoised {
					return nil, common.Errorf(common.CodeConfiguration,
						"threshold stage requires an earlier denoise stage")
				}
			}
		}
	}
	return &Normalizer{stages: stages, logger: logger}, nil
}

// DefaultNormalizer builds upscale (optional), grayscale, denoise, contrast
// (optional), threshold, morphology (optional) and deskew in that order.
func DefaultNormalizer(opts Options, logger *slog.Logger) *Normalizer {
	if logger == nil {
		logger = slog.Default()
	}
	var stages []Stage
	if opts.Upscale {
		stages = append(stages, Upscale{MinSide: opts.UpscaleMinSide, Factor: 2, MaxDimension: opts.MaxDimension})
	}
	stages = append(stages,
		Grayscale{Mode: opts.Grayscale},
		Denoise{Radius: opts.BlurRadius},
	)
	if opts.ClipLimit > 0 {
		stages = append(stages, Contrast{ClipLimit: opts.ClipLimit, Tiles: opts.ContrastGrid})
	}
	stages = append(stages, Threshold{BlockSize: opts.BlockSize, C: opts.C})
	if opts.MorphRadius > 0 {
		stages = append(stages, Morphology{Radius: opts.MorphRadius})
	}
	stages = append(stages, Deskew{
		MinAngle: opts.MinSkew,
		MaxAngle: opts.MaxSkew,
		Options:  detection.DefaultSkewOptions(),
		Logger:   logger,
	})
	n, err := NewNormalizer(logger, false, stages...)
	if err != nil {
		// The stage order above always satisfies NewNormalizer.
		panic(err)
	}
	return n
}

// StageNames lists the stages in execution order.
func (n *Normalizer) StageNames() []string {
	names := make([]string, len(n.stages))
	for i, s := range n.stages {
		names[i] = s.Name()
	}
	return names
}

// Normalize runs every stage in order. The input is never modified.
// Cancellation is observed between stages.
func (n *Normalizer) Normalize(ctx context.Context, r *Raster) (*Raster, error) {
	if err := r.Validate(); err != nil {
		return nil, common.NewAppError(common.CodeUnsupportedImageFormat, "invalid raster", err)
	}
	cur := r
	for _, s := range n.stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, err := s.Apply(cur)
		if err != nil {
			return nil, fmt.Errorf("%s stage: %w", s.Name(), err)
		}
		n.logger.Debug("stage applied", "stage", s.Name(),
			"width", next.Width, "height", next.Height, "channels", next.Channels)
		cur = next
	}
	if cur == r {
		cur = r.Clone()
	}
	return cur, nil
}
