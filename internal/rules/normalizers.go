package rules

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// NormalizeFunc turns a raw capture into a canonical value. It returns false
// to reject the capture, in which case extraction moves on to the next match.
type NormalizeFunc func(raw string) (string, bool)

// Normalizer names accepted in rule files.
const (
	NormalizePrice    = "price"
	NormalizeQuantity = "quantity"
	NormalizeDate     = "date"
	NormalizeText     = "text"
	NormalizeCountry  = "country"
	NormalizeCode     = "code"
	NormalizeIdentity = "identity"
)

var normalizers = map[string]NormalizeFunc{
	NormalizePrice:    normalizePrice,
	NormalizeQuantity: normalizeQuantity,
	NormalizeDate:     normalizeDate,
	NormalizeText:     normalizeText,
	NormalizeCountry:  normalizeCountry,
	NormalizeCode:     normalizeCode,
	NormalizeIdentity: normalizeIdentity,
}

// NormalizerNames lists the registered normalizers, sorted.
func NormalizerNames() []string {
	names := make([]string, 0, len(normalizers))
	for n := range normalizers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Normalize runs the named normalizer. Unknown names reject every value.
func Normalize(name, raw string) (string, bool) {
	fn, ok := normalizers[name]
	if !ok {
		return "", false
	}
	return fn(raw)
}

var currencyNoise = strings.NewReplacer(
	"₹", "", "INR", "", "inr", "", "Rs.", "", "rs.", "", "RS.", "", "Rs", "", "rs", "", "RS", "",
	"/-", "", ",", "", " ", "", "\t", "",
)

// normalizePrice strips currency markers and thousands separators and prints
// whole amounts without decimals ("150") and others with two ("99.50").
func normalizePrice(raw string) (string, bool) {
	s := currencyNoise.Replace(strings.TrimSpace(raw))
	s = strings.TrimSuffix(strings.ToLower(s), "only")
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return "", false
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return "", false
	}
	if d.Equal(d.Truncate(0)) {
		return strconv.FormatInt(d.IntPart(), 10), true
	}
	return d.StringFixed(2), true
}

var quantityRe = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*([a-z]+)\.?$`)

var unitMap = map[string]string{
	"g": "g", "gm": "g", "gms": "g", "gram": "g", "grams": "g",
	"kg": "kg", "kgs": "kg", "kilogram": "kg", "kilograms": "kg",
	"ml": "ml", "millilitre": "ml", "millilitres": "ml", "milliliter": "ml", "milliliters": "ml",
	"l": "l", "ltr": "l", "ltrs": "l", "litre": "l", "litres": "l", "liter": "l", "liters": "l",
	"pcs": "pcs", "piece": "pcs", "pieces": "pcs", "no": "pcs", "nos": "pcs", "unit": "pcs", "units": "pcs",
}

// normalizeQuantity canonicalizes "500gms" to "500 g" and "1,5 Ltr" to "1.5 l".
func normalizeQuantity(raw string) (string, bool) {
	m := quantityRe.FindStringSubmatch(strings.ToLower(strings.TrimSpace(raw)))
	if m == nil {
		return "", false
	}
	unit, ok := unitMap[m[2]]
	if !ok {
		return "", false
	}
	num := strings.Replace(m[1], ",", ".", 1)
	if d, err := decimal.NewFromString(num); err != nil || !d.IsPositive() {
		return "", false
	}
	return num + " " + unit, true
}

var (
	numericDateRe = regexp.MustCompile(`^(\d{1,2})\s*[/\-.]\s*(\d{1,2})\s*[/\-.]\s*(\d{2}|\d{4})$`)
	monthYearRe   = regexp.MustCompile(`^(\d{1,2})\s*[/\-.]\s*(\d{4})$`)
	dayMonthRe    = regexp.MustCompile(`^(\d{1,2})\s*([a-z]{3,9})\.?\s*,?\s*(\d{2}|\d{4})$`)
	namedMonthRe  = regexp.MustCompile(`^([a-z]{3,9})\.?\s*[/\-.]?\s*(\d{4})$`)
)

var months = []string{"jan", "feb", "mar", "apr", "may", "jun", "jul", "aug", "sep", "oct", "nov", "dec"}

// monthAbbrev maps "january", "jan" or "sept" to "Jan"-style abbreviations.
func monthAbbrev(s string) (string, bool) {
	if len(s) < 3 {
		return "", false
	}
	for _, m := range months {
		if strings.HasPrefix(s, m) {
			full := fullMonth[m]
			if s == m || strings.HasPrefix(full, s) || (m == "sep" && s == "sept") {
				return strings.ToUpper(m[:1]) + m[1:], true
			}
		}
	}
	return "", false
}

var fullMonth = map[string]string{
	"jan": "january", "feb": "february", "mar": "march", "apr": "april",
	"may": "may", "jun": "june", "jul": "july", "aug": "august",
	"sep": "september", "oct": "october", "nov": "november", "dec": "december",
}

// normalizeDate accepts day/month/year, month/year and named-month forms.
// Numeric separators become "/"; month names become three-letter title case.
func normalizeDate(raw string) (string, bool) {
	s := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	if m := numericDateRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if day < 1 || day > 31 || month < 1 || month > 12 {
			return "", false
		}
		return m[1] + "/" + m[2] + "/" + m[3], true
	}
	if m := monthYearRe.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		if month < 1 || month > 12 {
			return "", false
		}
		return m[1] + "/" + m[2], true
	}
	if m := dayMonthRe.FindStringSubmatch(s); m != nil {
		day, _ := strconv.Atoi(m[1])
		mon, ok := monthAbbrev(m[2])
		if !ok || day < 1 || day > 31 {
			return "", false
		}
		return m[1] + " " + mon + " " + m[3], true
	}
	if m := namedMonthRe.FindStringSubmatch(s); m != nil {
		mon, ok := monthAbbrev(m[1])
		if !ok {
			return "", false
		}
		return mon + " " + m[2], true
	}
	return "", false
}

// cleanText replaces characters outside letters, digits, whitespace and
// . , & - ' with spaces, collapses whitespace and trims edge punctuation.
func cleanText(raw string) string {
	mapped := strings.Map(func(r rune) rune {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			return r
		case strings.ContainsRune(".,&-'", r):
			return r
		}
		return ' '
	}, raw)
	s := strings.Join(strings.Fields(mapped), " ")
	return strings.Trim(s, " .,-&'")
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

// normalizeText keeps meaningful free text: more than three characters and
// not only digits.
func normalizeText(raw string) (string, bool) {
	s := cleanText(raw)
	if len([]rune(s)) <= 3 || isAllDigits(s) {
		return "", false
	}
	return s, true
}

var titleCaser = cases.Title(language.English)

// normalizeCountry title-cases a short place name of at most three words.
// Two- and three-letter codes such as USA and UK stay upper case.
func normalizeCountry(raw string) (string, bool) {
	s := cleanText(raw)
	words := strings.Fields(s)
	if len(words) == 0 || len(words) > 3 {
		return "", false
	}
	for i, w := range words {
		for _, r := range w {
			if !unicode.IsLetter(r) {
				return "", false
			}
		}
		if len(w) <= 3 && strings.ToUpper(w) == w {
			continue
		}
		words[i] = titleCaser.String(w)
	}
	out := strings.Join(words, " ")
	if len([]rune(out)) < 2 {
		return "", false
	}
	return out, true
}

// normalizeCode upper-cases batch and lot codes. A code is 3 to 20 letters,
// digits, '-' or '/' with at least one digit.
func normalizeCode(raw string) (string, bool) {
	s := strings.ToUpper(strings.TrimSpace(raw))
	if n := len(s); n < 3 || n > 20 {
		return "", false
	}
	digit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			digit = true
		case r >= 'A' && r <= 'Z', r == '-', r == '/':
		default:
			return "", false
		}
	}
	if !digit {
		return "", false
	}
	return s, true
}

func normalizeIdentity(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	return s, s != ""
}
