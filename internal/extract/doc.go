// Package extract finds compliance fields in recognized label text.
//
// Each rule's matchers run in descending priority against the full text. A
// matcher's matches are visited in document order and the first one whose
// captured value the matcher's normalizer accepts wins the field. The field
// confidence is the matcher specificity scaled by the mean confidence of the
// recognized tokens that overlap the whole match.
//
// Extraction is pure: the same text and rules always yield the same fields.
package extract
