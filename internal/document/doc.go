// Package document rasterizes PDF label artwork for recognition.
//
// Open validates the document with pdfcpu and stages it in a private temporary
// directory. Pages.Next renders exactly one page per call by running
// pdftoppm (poppler-utils) at the configured DPI, decodes the PNG it writes,
// and deletes the file before returning. Only one page raster is alive at a
// time, so long documents do not accumulate memory. Close removes the
// directory.
//
// A page that fails to render is reported as *PageError and the sequence
// moves on; a timeout, a missing renderer, or an unreadable document stops
// the whole document.
package document
