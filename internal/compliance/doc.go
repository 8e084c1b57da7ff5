// Package compliance runs label checks end to end.
//
// A Checker decodes an image (or renders a PDF page by page), normalizes each
// raster, recognizes its text, extracts the configured fields and scores
// them. Every check gets a fresh run ID that is attached to its log lines and
// to the Result.
//
// Images are first checked for suitability: files over the byte limit and
// images smaller than the minimum dimension are rejected with
// common.ErrUnsupportedImageFormat before decoding. When a normalized raster
// yields no text, the raster as decoded is recognized once more.
//
// # Page policy
//
// For documents, a page that fails to render or recognize is skipped and
// recorded in the result's warnings. If every page fails the check returns
// common.ErrRecognitionFailed. Timeouts and input format errors abort the
// whole check and no partial result is returned.
//
// # Fallback
//
// When the recognition engine reports that it is unavailable, the check
// returns Fallback(rules) instead of an error: every field undetected, score
// 0, status fail, Synthetic true. Synthetic and recognized output are never
// mixed.
package compliance
