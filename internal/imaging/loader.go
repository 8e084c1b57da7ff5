package imaging

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ironsheep/label-compliance/internal/common"
	_ "golang.org/x/image/webp" // Register WebP format decoder
)

// DefaultMaxDimension is the largest accepted width or height in pixels.
const DefaultMaxDimension = 10000

// Recognition suitability limits for photographed labels.
const (
	DefaultMinDimension = 50
	DefaultMaxBytes     = 50 << 20
)

// MIME types accepted by Decode.
const (
	MIMEJPEG = "image/jpeg"
	MIMEPNG  = "image/png"
	MIMEWebP = "image/webp"
)

var formatForMIME = map[string]string{
	MIMEJPEG: "jpeg",
	MIMEPNG:  "png",
	MIMEWebP: "webp",
}

// SupportedMIME reports whether mimeType is an accepted image type.
func SupportedMIME(mimeType string) bool {
	_, ok := formatForMIME[normalizeMIME(mimeType)]
	return ok
}

// ImageInfo contains metadata about an encoded image.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is the decoder that recognized the data: "png", "jpeg" or "webp".
	Format string `json:"format"`
}

// Inspect reads the image header without decoding pixel data.
func Inspect(data []byte) (*ImageInfo, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to read image header: %w", err)
	}
	return &ImageInfo{Width: cfg.Width, Height: cfg.Height, Format: format}, nil
}

// Decode turns an encoded JPEG, PNG or WebP buffer into a 4-channel Raster.
//
// Parameters:
//   - data: The encoded image bytes.
//   - mimeType: The declared type. Must be image/jpeg, image/png or image/webp.
//   - maxDimension: Largest accepted width or height; values <= 0 select
//     DefaultMaxDimension.
//
// EXIF orientation is applied for JPEG input so that rotated phone photos of
// labels arrive upright.
//
// # Errors
//
// Every failure unwraps to common.ErrUnsupportedImageFormat:
//   - the declared type is not one of the accepted types
//   - the header cannot be parsed or names a different family of format
//   - either dimension exceeds maxDimension
//   - pixel decoding fails
func Decode(data []byte, mimeType string, maxDimension int) (*Raster, error) {
	if maxDimension <= 0 {
		maxDimension = DefaultMaxDimension
	}
	want, ok := formatForMIME[normalizeMIME(mimeType)]
	if !ok {
		return nil, common.Errorf(common.CodeUnsupportedImageFormat, "mime type %q is not accepted", mimeType)
	}

	info, err := Inspect(data)
	if err != nil {
		return nil, common.NewAppError(common.CodeUnsupportedImageFormat, "decode header", err)
	}
	if info.Format != want {
		return nil, common.Errorf(common.CodeUnsupportedImageFormat,
			"declared %s but data is %s", mimeType, info.Format)
	}
	if info.Width > maxDimension || info.Height > maxDimension {
		return nil, common.Errorf(common.CodeUnsupportedImageFormat,
			"image %dx%d exceeds maximum dimension %d", info.Width, info.Height, maxDimension)
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, common.NewAppError(common.CodeUnsupportedImageFormat, "decode pixels", err)
	}
	return FromImage(img), nil
}

// CheckSuitable rejects encoded images that are too small to hold legible
// text or too large to process. Non-positive limits select the defaults.
// Failures unwrap to common.ErrUnsupportedImageFormat.
func CheckSuitable(data []byte, minDimension, maxBytes int) error {
	if minDimension <= 0 {
		minDimension = DefaultMinDimension
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if len(data) > maxBytes {
		return common.Errorf(common.CodeUnsupportedImageFormat,
			"image of %d bytes exceeds the %d byte limit", len(data), maxBytes)
	}
	info, err := Inspect(data)
	if err != nil {
		return common.NewAppError(common.CodeUnsupportedImageFormat, "decode header", err)
	}
	if info.Width < minDimension || info.Height < minDimension {
		return common.Errorf(common.CodeUnsupportedImageFormat,
			"image %dx%d is too small for recognition (minimum %d)", info.Width, info.Height, minDimension)
	}
	return nil
}

func normalizeMIME(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	if i := strings.IndexByte(m, ';'); i >= 0 {
		m = strings.TrimSpace(m[:i])
	}
	if m == "image/jpg" {
		return MIMEJPEG
	}
	return m
}
