package imaging

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
)

// Raster is an owned pixel buffer passed between normalization stages.
//
// Pixels are stored row-major with no padding. Channels is 1 for grayscale
// (one byte per pixel) or 4 for non-premultiplied RGBA. Stages never modify
// their input; every transformation allocates a new Raster, so a failing stage
// cannot corrupt the output of an earlier one.
type Raster struct {
	Pix      []uint8
	Width    int
	Height   int
	Channels int
}

// NewGray allocates a white grayscale raster.
func NewGray(width, height int) *Raster {
	pix := make([]uint8, width*height)
	for i := range pix {
		pix[i] = 255
	}
	return &Raster{Pix: pix, Width: width, Height: height, Channels: 1}
}

// FromImage copies img into a 4-channel Raster anchored at (0,0).
func FromImage(img image.Image) *Raster {
	// imaging.Clone normalizes any color model and origin to a tight NRGBA.
	n := imaging.Clone(img)
	w, h := n.Bounds().Dx(), n.Bounds().Dy()
	pix := make([]uint8, w*h*4)
	for y := 0; y < h; y++ {
		copy(pix[y*w*4:(y+1)*w*4], n.Pix[y*n.Stride:y*n.Stride+w*4])
	}
	return &Raster{Pix: pix, Width: w, Height: h, Channels: 4}
}

// FromGray copies a *image.Gray into a 1-channel Raster.
func FromGray(g *image.Gray) *Raster {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		off := g.PixOffset(b.Min.X, b.Min.Y+y)
		copy(pix[y*w:(y+1)*w], g.Pix[off:off+w])
	}
	return &Raster{Pix: pix, Width: w, Height: h, Channels: 1}
}

// Validate checks that the buffer length agrees with the metadata.
func (r *Raster) Validate() error {
	if r == nil {
		return fmt.Errorf("nil raster")
	}
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid raster size %dx%d", r.Width, r.Height)
	}
	if r.Channels != 1 && r.Channels != 4 {
		return fmt.Errorf("unsupported channel count %d", r.Channels)
	}
	if len(r.Pix) != r.Width*r.Height*r.Channels {
		return fmt.Errorf("pixel buffer length %d does not match %dx%dx%d",
			len(r.Pix), r.Width, r.Height, r.Channels)
	}
	return nil
}

// Clone returns a deep copy.
func (r *Raster) Clone() *Raster {
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	return &Raster{Pix: pix, Width: r.Width, Height: r.Height, Channels: r.Channels}
}

// GrayAt returns the luminance at (x, y) of a 1-channel raster.
func (r *Raster) GrayAt(x, y int) uint8 {
	return r.Pix[y*r.Width+x]
}

// IsBinary reports whether every pixel of a 1-channel raster is 0 or 255.
func (r *Raster) IsBinary() bool {
	if r.Channels != 1 {
		return false
	}
	for _, v := range r.Pix {
		if v != 0 && v != 255 {
			return false
		}
	}
	return true
}

// Image exposes the raster as a standard library image sharing no memory
// with r: *image.Gray for one channel, *image.NRGBA for four.
func (r *Raster) Image() image.Image {
	rect := image.Rect(0, 0, r.Width, r.Height)
	pix := make([]uint8, len(r.Pix))
	copy(pix, r.Pix)
	if r.Channels == 1 {
		return &image.Gray{Pix: pix, Stride: r.Width, Rect: rect}
	}
	return &image.NRGBA{Pix: pix, Stride: r.Width * 4, Rect: rect}
}

// EncodePNG writes the raster as a lossless PNG.
func (r *Raster) EncodePNG(w io.Writer) error {
	return imaging.Encode(w, r.Image(), imaging.PNG)
}

// grayFromRGBA reads the red channel of an RGBA-like image into a gray
// raster, mapping transparent pixels to fill.
func grayFromRGBA(img image.Image, fill uint8) *Raster {
	b := img.Bounds()
	out := &Raster{Pix: make([]uint8, b.Dx()*b.Dy()), Width: b.Dx(), Height: b.Dy(), Channels: 1}
	for y := 0; y < out.Height; y++ {
		for x := 0; x < out.Width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			v := c.R
			if c.A < 128 {
				v = fill
			}
			out.Pix[y*out.Width+x] = v
		}
	}
	return out
}
