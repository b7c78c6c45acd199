package note

import (
	"strings"
	"unicode"
)

// dosage units glued onto a preceding bare number during normalization, so
// "20 mg" and "20mg" compare equal.
var doseUnits = map[string]struct{}{
	"mg": {}, "mcg": {}, "g": {}, "kg": {}, "ml": {}, "l": {},
	"mmhg": {}, "bpm": {}, "units": {}, "iu": {},
}

// leading articles skipped when deriving a key from free text.
var articles = map[string]struct{}{
	"a": {}, "an": {}, "the": {},
}

// Normalize lowercases s, replaces every non-alphanumeric rune with a space,
// collapses whitespace, folds digit variants to ASCII, and glues dosage units
// onto their preceding number. Normalization is deterministic and is the
// basis for field keys, similarity scoring, and rule trigger identity.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r):
			b.WriteRune(r)
		case unicode.IsNumber(r):
			b.WriteRune(foldDigit(r))
		default:
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	out := tokens[:0]
	for _, tok := range tokens {
		if _, unit := doseUnits[tok]; unit && len(out) > 0 && isNumeric(out[len(out)-1]) {
			out[len(out)-1] += tok
			continue
		}
		out = append(out, tok)
	}
	return strings.Join(out, " ")
}

// keyFromText derives the join key for a free-text field: the first
// normalized token that is not an article. Empty text yields an empty key.
func keyFromText(text string) string {
	for _, tok := range strings.Fields(Normalize(text)) {
		if _, skip := articles[tok]; skip {
			continue
		}
		return tok
	}
	return ""
}

// foldDigit maps subscript and superscript digit variants onto their ASCII
// forms, so "SpO₂" and "SpO2" derive the same key.
func foldDigit(r rune) rune {
	switch {
	case r >= '₀' && r <= '₉':
		return '0' + (r - '₀')
	case r >= '⁴' && r <= '⁹':
		return '4' + (r - '⁴')
	}
	switch r {
	case '⁰':
		return '0'
	case '¹':
		return '1'
	case '²':
		return '2'
	case '³':
		return '3'
	}
	return r
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
