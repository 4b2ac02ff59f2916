// Package news holds the pipeline's domain records.
package news

import (
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/candidatory/electionbot/internal/scoring"
)

// Article is one feed entry as produced by the fetcher. Immutable once
// created.
type Article struct {
	Title     string
	Link      string
	Summary   string
	Published *time.Time
	Source    string
	FeedURL   string

	// Item keeps the raw feed entry for image collection.
	Item *gofeed.Item
}

// ScoredArticle is an Article plus its scoring annotations. Built once by
// NewScoredArticle; only the fingerprint is attached afterwards.
type ScoredArticle struct {
	Article

	Score      int
	Tier       scoring.Tier
	Candidates []string
	Topics     []string

	Fingerprint string
}

// NewScoredArticle attaches a scoring result to an article.
func NewScoredArticle(a Article, r scoring.Result) *ScoredArticle {
	return &ScoredArticle{
		Article:    a,
		Score:      r.Score,
		Tier:       r.Tier,
		Candidates: r.Candidates,
		Topics:     r.Topics,
	}
}
