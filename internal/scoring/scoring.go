// Package scoring turns keyword matches into a relevance score and tier.
package scoring

import (
	"github.com/candidatory/electionbot/internal/keywords"
	"github.com/candidatory/electionbot/internal/textnorm"
)

// Tier is the coarse relevance bucket derived from score thresholds.
type Tier string

const (
	TierHigh   Tier = "HIGH"
	TierMedium Tier = "MEDIUM"
	TierLow    Tier = "LOW"
)

// Result carries the scoring annotations for one article.
type Result struct {
	Score      int
	Tier       Tier
	Candidates []string
	Topics     []string
}

// Engine scores articles against an immutable ruleset.
type Engine struct {
	rules  *keywords.Ruleset
	high   int
	medium int
}

// NewEngine builds an engine with the given tier thresholds.
func NewEngine(rules *keywords.Ruleset, high, medium int) *Engine {
	return &Engine{rules: rules, high: high, medium: medium}
}

// TierFor maps a score to its tier.
func (e *Engine) TierFor(score int) Tier {
	switch {
	case score >= e.high:
		return TierHigh
	case score >= e.medium:
		return TierMedium
	default:
		return TierLow
	}
}

// Score evaluates one article. Title and description are matched separately
// so title hits carry the higher weight; a description hit only counts when
// the title did not already match the same keyword.
func (e *Engine) Score(title, desc string) Result {
	pt := keywords.Pad(textnorm.Normalize(title))
	pd := keywords.Pad(textnorm.Normalize(desc))
	pa := keywords.Pad(textnorm.Normalize(title) + " " + textnorm.Normalize(desc))

	// Rejection veto short-circuits everything else.
	for _, p := range e.rules.Rejection {
		if p.Matches(pa) {
			return Result{Score: -1, Tier: TierLow}
		}
	}

	score := 0
	for _, w := range e.rules.Core {
		if w.Matches(pt) {
			score += w.TitleWeight
		} else if w.Matches(pd) {
			score += w.DescWeight
		}
	}
	for _, w := range e.rules.Contextual {
		if w.Matches(pt) {
			score += w.TitleWeight
		} else if w.Matches(pd) {
			score += w.DescWeight
		}
	}

	var candidates []string
	for _, c := range e.rules.Candidates {
		if c.Matches(pa) {
			candidates = append(candidates, c.Name)
			if c.Matches(pt) {
				score += 2
			} else {
				score += 1
			}
		}
	}

	var topics []string
	for _, g := range e.rules.Topics {
		for _, p := range g.Patterns {
			if p.Matches(pa) {
				topics = append(topics, g.Name)
				break
			}
		}
	}

	// Multi-signal boosts push borderline-but-specific articles (a named
	// candidate plus a procedural topic) over the publish bar. Applied
	// before the tier decision; nothing may promote a tier afterwards.
	if len(candidates) > 0 && score >= e.medium {
		score += 2
	}
	if len(topics) >= 2 && score >= e.medium {
		score += 1
	}

	return Result{
		Score:      score,
		Tier:       e.TierFor(score),
		Candidates: candidates,
		Topics:     topics,
	}
}
