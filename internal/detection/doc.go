// Package detection estimates page geometry from binarized rasters.
//
// EstimateSkew finds the dominant text-line angle with a Hough-style search:
// dark pixels are projected onto the normal of each candidate angle and the
// angle whose projection histogram is most sharply peaked wins. A coarse pass
// over [-90, 90) is refined by a fine pass around the best coarse angle.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// A positive angle means text lines descend to the right; rotating the image
// by the negated angle levels them.
//
// # Determinism
//
// Sampling uses a fixed stride, so the same image always yields the same
// result. Functions are pure and safe for concurrent use.
package detection
