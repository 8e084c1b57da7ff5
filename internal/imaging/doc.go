// Package imaging turns label photographs and rendered document pages into
// clean binary rasters for text recognition.
//
// Decode accepts JPEG, PNG and WebP buffers and produces a Raster, an owned
// row-major pixel buffer with one (gray) or four (RGBA) channels. A Normalizer
// then runs an ordered list of Stages over it:
//
//  1. Upscale: enlarge rasters whose short side is under 300 px (optional)
//  2. Grayscale: BT.601 luma, or CIE L* lightness
//  3. Denoise: Gaussian blur
//  4. Threshold: adaptive mean-C binarization, output strictly 0 or 255
//  5. Deskew: rotate so text lines are horizontal
//
// # Coordinate System
//
// Pixel coordinates are 0-based with (0,0) at the top-left corner, X
// increasing rightward and Y increasing downward. Positive skew angles mean
// text lines descend to the right.
//
// # Thread Safety
//
// Stages and Normalizers are immutable once built. Every stage allocates a new
// Raster, so a Normalizer may be shared across goroutines and a caller's input
// raster is never changed.
//
// # Errors
//
// Decode failures and malformed rasters unwrap to
// common.ErrUnsupportedImageFormat. A threshold stage placed before any
// denoise stage is rejected by NewNormalizer with common.ErrConfiguration.
package imaging
