package ocr

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var glyphFixes = strings.NewReplacer(
	"§", "S",
	"¢", "C",
)

// CleanWord normalizes one recognized word: NFKC folding (full-width digits,
// ligatures), control characters removed, inner whitespace collapsed, and
// letter/digit confusions repaired inside numbers. It returns "" for words
// with nothing printable left.
func CleanWord(s string) string {
	s = norm.NFKC.String(s)
	s = glyphFixes.Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		case unicode.IsSpace(r):
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return fixDigitConfusions(b.String())
}

// fixDigitConfusions turns O/o into 0 and I/l/| into 1 when they sit between
// two digits, as in "1O0" or "2l5".
func fixDigitConfusions(s string) string {
	rs := []rune(s)
	if len(rs) < 3 {
		return s
	}
	changed := false
	for i := 1; i < len(rs)-1; i++ {
		if !unicode.IsDigit(rs[i-1]) || !unicode.IsDigit(rs[i+1]) {
			continue
		}
		switch rs[i] {
		case 'O', 'o':
			rs[i] = '0'
			changed = true
		case 'I', 'l', '|':
			rs[i] = '1'
			changed = true
		}
	}
	if !changed {
		return s
	}
	return string(rs)
}

// CleanWords applies CleanWord and drops words that end up empty.
func CleanWords(words []Word) []Word {
	out := make([]Word, 0, len(words))
	for _, w := range words {
		w.Text = CleanWord(w.Text)
		if w.Text == "" {
			continue
		}
		if w.Confidence < 0 {
			w.Confidence = 0
		}
		if w.Confidence > 1 {
			w.Confidence = 1
		}
		out = append(out, w)
	}
	return out
}
