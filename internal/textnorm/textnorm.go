// Package textnorm canonicalizes Persian/Arabic news text so that keyword
// matching, fingerprinting and fuzzy comparison all see the same substrate.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Arabic letterforms folded to their Persian equivalents.
var letterforms = strings.NewReplacer(
	"ي", "ی", "ك", "ک",
	"ة", "ه", "ؤ", "و",
	"إ", "ا", "أ", "ا",
	"ئ", "ی", "ى", "ی",
)

var (
	diacritics = regexp.MustCompile(`[\x{064B}-\x{065F}\x{0670}]`)
	// Zero-width marks are deleted outright, not replaced by a space: a word
	// written with and without a ZWNJ must normalize identically.
	zeroWidth = regexp.MustCompile("[\u200c\u200d\u200e\u200f\ufeff]")
	// The Arabic block is kept wholesale for letters and digits, so its
	// punctuation has to be listed separately.
	nonWord = regexp.MustCompile(`[^\w\s\x{0600}-\x{06FF}]|[،؛؟٪«»]`)
)

var stopwords = map[string]struct{}{
	"و": {}, "در": {}, "به": {}, "از": {}, "که": {}, "این": {}, "را": {}, "با": {}, "های": {},
	"برای": {}, "آن": {}, "یک": {}, "هم": {}, "تا": {}, "اما": {}, "یا": {}, "بود": {},
	"شد": {}, "است": {}, "می": {}, "هر": {}, "اگر": {}, "بر": {}, "ها": {}, "نیز": {},
	"کرد": {}, "خود": {}, "هیچ": {}, "پس": {}, "باید": {}, "نه": {}, "ما": {}, "شود": {},
	"the": {}, "a": {}, "an": {}, "is": {}, "are": {}, "was": {}, "of": {}, "in": {},
	"to": {}, "for": {}, "and": {}, "or": {}, "but": {}, "with": {}, "on": {},
}

// Normalize canonicalizes script variants, strips diacritics and zero-width
// marks, lowercases, replaces punctuation with whitespace and collapses runs
// of whitespace. Deterministic and pure.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	t := letterforms.Replace(text)
	t = diacritics.ReplaceAllString(t, "")
	t = zeroWidth.ReplaceAllString(t, "")
	t = strings.ToLower(t)
	t = nonWord.ReplaceAllString(t, " ")
	return strings.Join(strings.Fields(t), " ")
}

// Tokens returns the normalized tokens of text with stopwords and
// sub-2-rune tokens removed.
func Tokens(text string) []string {
	fields := strings.Fields(Normalize(text))
	out := make([]string, 0, len(fields))
	for _, tok := range fields {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if utf8.RuneCountInString(tok) < 2 {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// NormalizeForMatching is the stopword-stripped normal form used for
// fingerprinting and fuzzy comparison. Keyword matching uses Normalize
// instead, because stopwords can be meaningful inside multi-word phrases.
func NormalizeForMatching(text string) string {
	return strings.Join(Tokens(text), " ")
}
