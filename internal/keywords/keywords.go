// Package keywords holds the compiled election keyword ruleset. The ruleset
// is an immutable value built once at startup and passed into the scoring
// engine, so it can be swapped out in tests without touching process state.
package keywords

import (
	"regexp"

	"github.com/candidatory/electionbot/internal/textnorm"
)

// Pattern matches a normalized keyword as a whole token run, never as a
// substring of a longer word. Inputs must be padded with Pad first.
type Pattern struct {
	re *regexp.Regexp
}

// Compile builds a word-boundary pattern for keyword. Returns ok=false when
// the keyword normalizes to nothing.
func Compile(keyword string) (Pattern, bool) {
	nk := textnorm.Normalize(keyword)
	if nk == "" {
		return Pattern{}, false
	}
	return Pattern{re: regexp.MustCompile(`(?:^|\s)` + regexp.QuoteMeta(nk) + `(?:\s|$)`)}, true
}

// Pad wraps normalized text in spaces so boundary patterns can anchor on
// either side of the first and last token.
func Pad(normalized string) string {
	return " " + normalized + " "
}

// Matches reports whether the keyword occurs in padded normalized text.
func (p Pattern) Matches(padded string) bool {
	return p.re.MatchString(padded)
}

// Weighted is a scored keyword: title matches are worth more than matches
// that only appear in the description.
type Weighted struct {
	Pattern
	TitleWeight int
	DescWeight  int
}

// Named is an entity keyword that is extracted, not just counted.
type Named struct {
	Pattern
	Name string
}

// TopicGroup tags an article with a topic when any of its patterns match.
type TopicGroup struct {
	Name     string
	Patterns []Pattern
}

// HashtagRule maps a normalized keyword occurrence to a hashtag.
type HashtagRule struct {
	Keyword string
	Tag     string
}

// Ruleset is the full compiled pattern table set.
type Ruleset struct {
	Core       []Weighted
	Contextual []Weighted
	Rejection  []Pattern
	Candidates []Named
	Topics     []TopicGroup

	HashtagMap    []HashtagRule
	TopicHashtags map[string]string
	DefaultTag    string
}

type rawWeighted struct {
	kw    string
	title int
	desc  int
}

func compileWeighted(raw []rawWeighted) []Weighted {
	out := make([]Weighted, 0, len(raw))
	for _, r := range raw {
		if p, ok := Compile(r.kw); ok {
			out = append(out, Weighted{Pattern: p, TitleWeight: r.title, DescWeight: r.desc})
		}
	}
	return out
}

func compileSimple(raw []string) []Pattern {
	out := make([]Pattern, 0, len(raw))
	for _, kw := range raw {
		if p, ok := Compile(kw); ok {
			out = append(out, p)
		}
	}
	return out
}

// DefaultRuleset compiles the production election keyword tables.
func DefaultRuleset() *Ruleset {
	rs := &Ruleset{
		Core:       compileWeighted(rawCore),
		Contextual: compileWeighted(rawContextual),
		Rejection:  compileSimple(rawRejection),
		HashtagMap: hashtagMap,
		TopicHashtags: map[string]string{
			"صلاحیت":   "#صلاحیت",
			"ثبت‌نام":  "#ثبت_نام",
			"تبلیغات":  "#تبلیغات_انتخاباتی",
			"رای‌گیری": "#رأی_گیری",
			"نتایج":    "#نتایج_انتخابات",
			"مجلس":     "#مجلس",
			"شورا":     "#شورای_شهر",
		},
		DefaultTag: "#انتخابات",
	}

	for _, name := range knownCandidates {
		if p, ok := Compile(name); ok {
			rs.Candidates = append(rs.Candidates, Named{Pattern: p, Name: name})
		}
	}

	for _, g := range topicGroups {
		pats := compileSimple(g.keywords)
		if len(pats) > 0 {
			rs.Topics = append(rs.Topics, TopicGroup{Name: g.name, Patterns: pats})
		}
	}

	return rs
}
