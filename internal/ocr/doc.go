// Package ocr turns normalized page rasters into positioned text using
// Tesseract.
//
// # Engines
//
// Two Engine implementations ship with the package:
//
//   - TesseractEngine: libtesseract in-process via gosseract/v2. Requires cgo;
//     builds without cgo get a stub that always reports ErrUnavailable.
//   - CLIEngine: runs the tesseract binary with the page on stdin and parses
//     its TSV output. Only the binary and its language data are needed.
//
// NewEngine picks one from common.OCRConfig. Both also implement ModeEngine,
// so a Recognizer built WithModes tries several page segmentation modes per
// page and keeps the output with the highest mean word confidence.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// TESSDATA_PREFIX points both engines at a non-default traineddata directory.
//
// # Text Model
//
// The Recognizer cleans every word (NFKC folding, control characters removed,
// digit confusions repaired) and assembles RecognizedText. FullText is built
// from the tokens themselves, words of one line joined by a space and lines by
// a newline, so each Token's Start and End are exact byte offsets into
// FullText. JoinPages combines pages with PageSeparator.
//
// # Error Handling
//
// Recognizer.Recognize maps engine failures onto the common error taxonomy:
// ErrUnavailable becomes common.ErrEngineUnavailable, deadlines become
// common.ErrRecognitionTimeout, and everything else becomes
// common.ErrRecognitionFailed.
package ocr
