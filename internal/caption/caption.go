// Package caption renders the channel post text: HTML cleanup, hashtag
// generation and the caption template with its length budget.
package caption

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/candidatory/electionbot/internal/keywords"
	"github.com/candidatory/electionbot/internal/news"
	"github.com/candidatory/electionbot/internal/textnorm"
)

var (
	tagFallback = regexp.MustCompile(`<[^>]+>`)
	htmlEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
)

// StripHTML extracts the text of an HTML fragment, dropping script, style
// and iframe content, with whitespace collapsed.
func StripHTML(html string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return strings.TrimSpace(tagFallback.ReplaceAllString(html, " "))
	}
	doc.Find("script, style, iframe").Remove()
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// Truncate shortens text to at most limit runes, cutting on a word boundary
// when one falls in the last fifth and appending an ellipsis.
func Truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	cut := runes[:limit]
	ls := -1
	for i, r := range cut {
		if r == ' ' {
			ls = i
		}
	}
	if ls > limit*4/5 {
		cut = cut[:ls]
	}
	return string(cut) + "…"
}

// EscapeHTML escapes the three characters Telegram's HTML parse mode cares
// about.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Builder renders captions against a ruleset's hashtag tables.
type Builder struct {
	rules   *keywords.Ruleset
	channel string
	maxLen  int
}

// NewBuilder creates a caption builder. channel is the public channel handle
// printed in the footer; maxLen is the platform caption ceiling.
func NewBuilder(rules *keywords.Ruleset, channel string, maxLen int) *Builder {
	return &Builder{rules: rules, channel: channel, maxLen: maxLen}
}

// Hashtags derives up to 6 hashtags: matched topics first, then keyword
// occurrences, with the default election tag always present.
func (b *Builder) Hashtags(title, desc string, topics []string) []string {
	norm := textnorm.Normalize(title + " " + desc)
	seen := make(map[string]struct{})
	var tags []string

	for _, t := range topics {
		if ht, ok := b.rules.TopicHashtags[t]; ok {
			if _, dup := seen[ht]; !dup {
				seen[ht] = struct{}{}
				tags = append(tags, ht)
			}
		}
	}

	for _, rule := range b.rules.HashtagMap {
		if len(tags) >= 5 {
			break
		}
		kn := textnorm.Normalize(rule.Keyword)
		if kn == "" || !strings.Contains(norm, kn) {
			continue
		}
		if _, dup := seen[rule.Tag]; dup {
			continue
		}
		seen[rule.Tag] = struct{}{}
		tags = append(tags, rule.Tag)
	}

	if _, ok := seen[b.rules.DefaultTag]; !ok {
		tags = append([]string{b.rules.DefaultTag}, tags...)
	}
	if len(tags) > 6 {
		tags = tags[:6]
	}
	return tags
}

// Build renders the full caption. When the rendered text exceeds the ceiling
// the description is trimmed and the caption re-rendered, so the title,
// hashtags and footer always survive.
func (b *Builder) Build(a *news.ScoredArticle) string {
	st := EscapeHTML(strings.TrimSpace(a.Title))
	sd := EscapeHTML(strings.TrimSpace(a.Summary))

	tags := b.Hashtags(a.Title, a.Summary, a.Topics)
	hl := strings.Join(tags, " ")

	for i, c := range a.Candidates {
		if i >= 2 {
			break
		}
		ct := "#" + EscapeHTML(strings.ReplaceAll(c, " ", "_"))
		if !strings.Contains(hl, ct) {
			hl += " " + ct
		}
	}

	caption := b.render(st, sd, hl, a.Source)
	if over := len([]rune(caption)) - b.maxLen; over > 0 {
		sdRunes := []rune(sd)
		keep := len(sdRunes) - over - 5
		if keep < 0 {
			keep = 0
		}
		sd = string(sdRunes[:keep]) + "…"
		caption = b.render(st, sd, hl, a.Source)
	}
	return caption
}

func (b *Builder) render(title, desc, hashtags, source string) string {
	var sb strings.Builder
	sb.WriteString("💠 <b>" + title + "</b>\n\n")
	sb.WriteString(hashtags + "\n\n")
	sb.WriteString(b.channel + "\n\n")
	sb.WriteString(desc + "\n\n")
	if source != "" {
		sb.WriteString(fmt.Sprintf("📰 %s\n", EscapeHTML(source)))
	}
	sb.WriteString("🇮🇷🇮🇷🇮🇷🇮🇷🇮🇷🇮🇷🇮🇷\n")
	sb.WriteString("کانال خبری کاندیداتوری\n")
	sb.WriteString("🆔 " + b.channel)
	return sb.String()
}
