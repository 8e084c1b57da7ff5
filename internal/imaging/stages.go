package imaging

import (
	"image"
	"image/color"
	"log/slog"
	"math"
	"strings"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"
	"github.com/ironsheep/label-compliance/internal/detection"
	colorful "github.com/lucasb-eyer/go-colorful"
)

// Stage names reported by Normalizer.StageNames.
const (
	StageUpscale    = "upscale"
	StageGrayscale  = "grayscale"
	StageDenoise    = "denoise"
	StageContrast   = "contrast"
	StageThreshold  = "threshold"
	StageMorphology = "morphology"
	StageDeskew     = "deskew"
)

// Grayscale conversion modes.
const (
	GrayscaleLuma      = "luma"
	GrayscaleLightness = "lightness"
)

// Stage is one step of the normalization pipeline. Apply must not modify its
// input.
type Stage interface {
	Name() string
	Apply(r *Raster) (*Raster, error)
}

// Upscale enlarges small rasters so thin glyph strokes survive thresholding.
type Upscale struct {
	// MinSide is the short-side length below which the raster is enlarged.
	MinSide int
	// Factor is the minimum scale factor.
	Factor float64
	// MaxDimension caps the long side of the result. Zero selects
	// DefaultMaxDimension.
	MaxDimension int
}

func (Upscale) Name() string { return StageUpscale }

func (s Upscale) Apply(r *Raster) (*Raster, error) {
	minSide := s.MinSide
	if minSide <= 0 {
		minSide = 300
	}
	maxDim := s.MaxDimension
	if maxDim <= 0 {
		maxDim = DefaultMaxDimension
	}
	short, long := min(r.Width, r.Height), max(r.Width, r.Height)
	if short >= minSide {
		return r.Clone(), nil
	}

	factor := math.Max(s.Factor, float64(minSide)/float64(short))
	factor = math.Min(factor, float64(maxDim)/float64(long))
	if factor <= 1 {
		return r.Clone(), nil
	}
	w := min(maxDim, int(math.Round(float64(r.Width)*factor)))
	h := min(maxDim, int(math.Round(float64(r.Height)*factor)))
	resized := imaging.Resize(r.Image(), w, h, imaging.Lanczos)

	out := FromImage(resized)
	if r.Channels == 1 {
		return toLuma(out), nil
	}
	return out, nil
}

// Grayscale reduces a raster to one channel.
type Grayscale struct {
	// Mode is GrayscaleLuma (BT.601 weights) or GrayscaleLightness (CIE L*).
	Mode string
}

func (Grayscale) Name() string { return StageGrayscale }

func (s Grayscale) Apply(r *Raster) (*Raster, error) {
	if r.Channels == 1 {
		return r.Clone(), nil
	}
	if strings.EqualFold(s.Mode, GrayscaleLightness) {
		return toLightness(r), nil
	}
	return toLuma(r), nil
}

// toLuma uses imaging.Grayscale, which weights R, G and B by 0.299, 0.587
// and 0.114.
func toLuma(r *Raster) *Raster {
	if r.Channels == 1 {
		return r.Clone()
	}
	g := imaging.Grayscale(r.Image())
	return grayFromRGBA(g, 255)
}

// toLightness maps CIE L* into [0, 255]. Transparent pixels become white.
func toLightness(r *Raster) *Raster {
	out := &Raster{Pix: make([]uint8, r.Width*r.Height), Width: r.Width, Height: r.Height, Channels: 1}
	for i := 0; i < r.Width*r.Height; i++ {
		p := r.Pix[i*4 : i*4+4]
		c, ok := colorful.MakeColor(color.NRGBA{R: p[0], G: p[1], B: p[2], A: p[3]})
		if !ok || p[3] < 128 {
			out.Pix[i] = 255
			continue
		}
		l, _, _ := c.Lab()
		out.Pix[i] = clampByte(l * 255)
	}
	return out
}

// Denoise applies a Gaussian blur.
type Denoise struct {
	Radius float64
}

func (Denoise) Name() string { return StageDenoise }

func (s Denoise) Apply(r *Raster) (*Raster, error) {
	if s.Radius <= 0 {
		return r.Clone(), nil
	}
	blurred := blur.Gaussian(r.Image(), s.Radius)
	if r.Channels == 1 {
		return grayFromRGBA(blurred, 255), nil
	}
	return FromImage(blurred), nil
}

// Contrast applies contrast-limited adaptive histogram equalization. The
// raster is divided into a Tiles×Tiles grid; each tile's histogram is clipped
// at ClipLimit times its mean bin height, the clipped excess is spread over
// all bins, and pixels are mapped by bilinear interpolation between the four
// nearest tile mappings.
type Contrast struct {
	ClipLimit float64
	Tiles     int
}

func (Contrast) Name() string { return StageContrast }

func (s Contrast) Apply(r *Raster) (*Raster, error) {
	gray := r
	if r.Channels != 1 {
		gray = toLuma(r)
	}
	if s.ClipLimit <= 0 {
		return gray.Clone(), nil
	}
	tiles := s.Tiles
	if tiles <= 0 {
		tiles = 8
	}
	return equalize(gray, s.ClipLimit, tiles), nil
}

func equalize(g *Raster, clipLimit float64, tiles int) *Raster {
	w, h := g.Width, g.Height
	tileW := (w + tiles - 1) / tiles
	tileH := (h + tiles - 1) / tiles
	tx := (w + tileW - 1) / tileW
	ty := (h + tileH - 1) / tileH

	luts := make([][256]uint8, tx*ty)
	for j := 0; j < ty; j++ {
		for i := 0; i < tx; i++ {
			x0, y0 := i*tileW, j*tileH
			luts[j*tx+i] = tileLUT(g, x0, y0, min(w, x0+tileW), min(h, y0+tileH), clipLimit)
		}
	}

	out := &Raster{Pix: make([]uint8, w*h), Width: w, Height: h, Channels: 1}
	for y := 0; y < h; y++ {
		j0, j1, ay := neighbourTiles(y, tileH, ty)
		for x := 0; x < w; x++ {
			i0, i1, ax := neighbourTiles(x, tileW, tx)
			v := g.Pix[y*w+x]
			top := (1-ax)*float64(luts[j0*tx+i0][v]) + ax*float64(luts[j0*tx+i1][v])
			bottom := (1-ax)*float64(luts[j1*tx+i0][v]) + ax*float64(luts[j1*tx+i1][v])
			out.Pix[y*w+x] = clampByte((1-ay)*top + ay*bottom)
		}
	}
	return out
}

// neighbourTiles returns the two tiles whose centres bracket pixel p along
// one axis and the interpolation weight of the second.
func neighbourTiles(p, size, count int) (int, int, float64) {
	f := (float64(p)+0.5)/float64(size) - 0.5
	t0 := int(math.Floor(f))
	switch {
	case t0 < 0:
		return 0, 0, 0
	case t0 >= count-1:
		return count - 1, count - 1, 0
	}
	return t0, t0 + 1, f - float64(t0)
}

// tileLUT builds the clipped equalization mapping of one tile.
func tileLUT(g *Raster, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var lut [256]uint8
	n := (x1 - x0) * (y1 - y0)
	if n <= 0 {
		for i := range lut {
			lut[i] = uint8(i)
		}
		return lut
	}

	var hist [256]int
	for y := y0; y < y1; y++ {
		for _, v := range g.Pix[y*g.Width+x0 : y*g.Width+x1] {
			hist[v]++
		}
	}

	limit := max(1, int(clipLimit*float64(n)/256))
	excess := 0
	for i, c := range hist {
		if c > limit {
			excess += c - limit
			hist[i] = limit
		}
	}
	bonus, rest := excess/256, excess%256
	for i := range hist {
		hist[i] += bonus
	}
	if rest > 0 {
		step := max(1, 256/rest)
		for i := 0; i < 256 && rest > 0; i += step {
			hist[i]++
			rest--
		}
	}

	cdf := 0
	for i, c := range hist {
		cdf += c
		lut[i] = uint8(min(255, (cdf*255+n/2)/n))
	}
	return lut
}

// Threshold binarizes with an adaptive mean-C rule: a pixel becomes white
// when it is brighter than the mean of its BlockSize×BlockSize neighbourhood
// minus C, and black otherwise. Output pixels are exactly 0 or 255.
type Threshold struct {
	BlockSize int
	C         int
}

func (Threshold) Name() string { return StageThreshold }

func (s Threshold) Apply(r *Raster) (*Raster, error) {
	gray := r
	if r.Channels != 1 {
		gray = toLuma(r)
	}
	block := s.BlockSize
	if block < 3 {
		block = 15
	}
	if block%2 == 0 {
		block++
	}
	return adaptiveThreshold(gray, block/2, s.C), nil
}

func adaptiveThreshold(g *Raster, half, c int) *Raster {
	w, h := g.Width, g.Height
	// integral[y+1][x+1] = sum of g over [0..x]×[0..y]
	stride := w + 1
	integral := make([]uint64, stride*(h+1))
	for y := 0; y < h; y++ {
		var row uint64
		for x := 0; x < w; x++ {
			row += uint64(g.Pix[y*w+x])
			integral[(y+1)*stride+x+1] = integral[y*stride+x+1] + row
		}
	}

	out := &Raster{Pix: make([]uint8, w*h), Width: w, Height: h, Channels: 1}
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w-1, x+half)
			sum := integral[(y1+1)*stride+x1+1] - integral[y0*stride+x1+1] -
				integral[(y1+1)*stride+x0] + integral[y0*stride+x0]
			area := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			mean := float64(sum) / float64(area)
			if float64(g.Pix[y*w+x]) > mean-float64(c) {
				out.Pix[y*w+x] = 255
			}
		}
	}
	return out
}

// Morphology closes and then opens a binary raster with a square window of
// the given radius (0.5 gives a 2×2 window). Closing removes dark specks
// smaller than the window; opening fills light pinholes inside strokes.
type Morphology struct {
	Radius float64
}

func (Morphology) Name() string { return StageMorphology }

func (s Morphology) Apply(r *Raster) (*Raster, error) {
	gray := r
	if r.Channels != 1 {
		gray = toLuma(r)
	}
	if s.Radius <= 0 {
		return gray.Clone(), nil
	}
	// Text is dark on light, so dilation grows the background.
	closed := effect.Erode(effect.Dilate(gray.Image(), s.Radius), s.Radius)
	opened := effect.Dilate(effect.Erode(closed, s.Radius), s.Radius)
	return rebinarize(opened), nil
}

// Deskew rotates a binary raster so its dominant text lines are horizontal.
type Deskew struct {
	// MinAngle is the magnitude at or below which no rotation happens.
	MinAngle float64
	// MaxAngle is the magnitude above which the estimate is distrusted and
	// the raster is left as is.
	MaxAngle float64
	Options  detection.SkewOptions
	Logger   *slog.Logger
}

func (Deskew) Name() string { return StageDeskew }

func (s Deskew) Apply(r *Raster) (*Raster, error) {
	gray := r
	if r.Channels != 1 {
		gray = toLuma(r)
	}
	img := gray.Image().(*image.Gray)
	est := detection.EstimateSkew(img, s.Options)

	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	angle := est.AngleDegrees
	switch {
	case !est.Found || math.Abs(angle) <= s.MinAngle:
		return gray.Clone(), nil
	case math.Abs(angle) > s.MaxAngle:
		logger.Info("skew beyond correction limit, leaving uncorrected",
			"angle_degrees", angle, "max_degrees", s.MaxAngle)
		return gray.Clone(), nil
	}

	logger.Debug("correcting skew", "angle_degrees", angle, "confidence", est.Confidence)
	// bild rotates clockwise for positive angles.
	rotated := transform.Rotate(img, -angle, &transform.RotationOptions{ResizeBounds: false})
	return rebinarize(rotated), nil
}

// rebinarize snaps interpolated and uncovered pixels back to {0, 255}.
// Pixels outside the rotated source are transparent and become white.
func rebinarize(img image.Image) *Raster {
	out := grayFromRGBA(img, 255)
	for i, v := range out.Pix {
		if v >= 128 {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
