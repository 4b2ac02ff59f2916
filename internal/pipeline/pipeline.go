// Package pipeline orchestrates one deadline-bounded run: fetch, triage,
// dedup and publish, each phase clipped to its share of the remaining time.
package pipeline

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/candidatory/electionbot/internal/budget"
	"github.com/candidatory/electionbot/internal/caption"
	"github.com/candidatory/electionbot/internal/config"
	"github.com/candidatory/electionbot/internal/dedup"
	"github.com/candidatory/electionbot/internal/feeds"
	"github.com/candidatory/electionbot/internal/history"
	"github.com/candidatory/electionbot/internal/images"
	"github.com/candidatory/electionbot/internal/keywords"
	"github.com/candidatory/electionbot/internal/logger"
	"github.com/candidatory/electionbot/internal/news"
	"github.com/candidatory/electionbot/internal/platform"
	"github.com/candidatory/electionbot/internal/ratelimit"
	"github.com/candidatory/electionbot/internal/scoring"
)

// Phase reserves: how much of the deadline each phase must leave for the
// phases after it. The publish loop refuses to start an item below its
// floor so a post never begins that cannot finish.
const (
	fetchReserve   = 16 * time.Second
	fetchFloor     = 3 * time.Second
	historyReserve = 12 * time.Second
	historyFloor   = 2 * time.Second
	saveReserve    = 6 * time.Second
	saveFloor      = time.Second
	imagesReserve  = 5 * time.Second
	imagesFloor    = time.Second
	postReserve    = 2 * time.Second
	postFloor      = 2 * time.Second
	publishFloor   = 8 * time.Second
	delayReserve   = 4 * time.Second
)

// FeedFetcher retrieves all sources within a context.
type FeedFetcher interface {
	FetchAll(ctx context.Context, sources []feeds.Source) ([]news.Article, feeds.Stats)
}

// HistoryStore is the published-news document store. Save doubles as the
// atomic cross-run dedup gate.
type HistoryStore interface {
	LoadRecent(ctx context.Context, limit int) ([]history.Record, error)
	Save(ctx context.Context, rec history.PublishRecord) (bool, error)
}

// ImageCollector gathers candidate image URLs for one entry.
type ImageCollector interface {
	Collect(ctx context.Context, item *gofeed.Item, link string) []string
}

// Pipeline wires the phases together. Collaborators are interfaces so runs
// can be exercised against fakes.
type Pipeline struct {
	cfg *config.Config
	log *logger.Logger

	fetcher   FeedFetcher
	store     HistoryStore
	collector ImageCollector
	posters   []platform.Poster

	sources  []feeds.Source
	engine   *scoring.Engine
	captions *caption.Builder
	limiter  *ratelimit.Limiter

	sleep func(time.Duration)
	clock func() time.Time
}

// New assembles a production pipeline from config.
func New(cfg *config.Config, log *logger.Logger) *Pipeline {
	rules := keywords.DefaultRuleset()

	sources, err := feeds.LoadSources(cfg.FeedsConfigPath)
	if err != nil {
		log.Warn("feeds config unavailable, using built-in sources",
			"path", cfg.FeedsConfigPath, "error", err)
		sources = feeds.DefaultSources()
	}

	posters := []platform.Poster{
		platform.NewTelegram(cfg.TelegramToken, cfg.TelegramChatID, cfg.MaxImages, cfg.PostMaxRetries, log),
		platform.NewBale(cfg.BaleToken, cfg.BaleChatID, cfg.MaxImages, cfg.PostMaxRetries, log),
	}

	return &Pipeline{
		cfg: cfg,
		log: log,
		fetcher: feeds.NewFetcher(feeds.Config{
			AttemptTimeout: cfg.FeedFetchTimeout,
			MaxRetries:     cfg.FeedMaxRetries,
			RetryBase:      cfg.FeedRetryBase,
			MaxDescChars:   cfg.MaxDescChars,
			MaxConcurrent:  len(sources),
		}, log),
		store: history.NewStore(history.Config{
			Endpoint:     cfg.HistoryEndpoint,
			ProjectID:    cfg.HistoryProjectID,
			APIKey:       cfg.HistoryAPIKey,
			DatabaseID:   cfg.HistoryDatabaseID,
			CollectionID: cfg.HistoryCollectionID,
		}, log),
		collector: images.NewCollector(cfg.ImageScrapeTimeout, cfg.MaxImages),
		posters:   posters,
		sources:   sources,
		engine:    scoring.NewEngine(rules, cfg.ScoreHigh, cfg.ScoreMedium),
		captions:  caption.NewBuilder(rules, cfg.ChannelHandle, cfg.CaptionMax),
		limiter:   ratelimit.New(cfg.RateLimitPerMinute),
		sleep:     time.Sleep,
		clock:     time.Now,
	}
}

// Run executes one full round and always returns a summary, even when every
// phase degraded. The tracker, not ctx, is the authority on the deadline;
// ctx only propagates cancellation from the host.
func (p *Pipeline) Run(ctx context.Context) *Stats {
	tracker := budget.NewWithClock(p.cfg.GlobalDeadline, p.clock)
	stats := newStats()

	articles := p.fetchPhase(ctx, tracker, stats)
	index := p.historyPhase(ctx, tracker, stats)
	queue := p.triagePhase(articles, index, stats)
	p.publishPhase(ctx, tracker, queue, stats)

	stats.Status = "success"
	stats.ElapsedSeconds = tracker.Elapsed().Seconds()
	stats.Metrics = p.log.Metrics()
	p.log.Info("run complete",
		"elapsed", tracker.Elapsed().Round(time.Millisecond),
		"queued", stats.QueuedHigh+stats.QueuedMedium,
		"posted", stats.Posted,
		"overflow", stats.Overflow,
		"errors", stats.Errors)
	return stats
}

func (p *Pipeline) fetchPhase(ctx context.Context, tracker *budget.Tracker, stats *Stats) []news.Article {
	window := tracker.Phase(p.cfg.FeedsTotalTimeout, fetchReserve)
	if window < fetchFloor {
		p.log.Warn("skipping fetch, not enough time", "window", window)
		return nil
	}

	fctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	articles, fs := p.fetcher.FetchAll(fctx, p.sources)
	stats.FeedsOK = fs.OK
	stats.FeedsFailed = fs.Failed
	stats.FeedRetries = fs.Retries
	stats.EntriesTotal = len(articles)

	// Newest first so the freshest stories survive any later cutoff.
	sort.SliceStable(articles, func(i, j int) bool {
		ti, tj := articles[i].Published, articles[j].Published
		switch {
		case ti == nil:
			return false
		case tj == nil:
			return true
		default:
			return ti.After(*tj)
		}
	})

	p.log.Info("fetch complete",
		"feeds_ok", fs.OK, "feeds_failed", fs.Failed, "entries", len(articles))
	return articles
}

func (p *Pipeline) historyPhase(ctx context.Context, tracker *budget.Tracker, stats *Stats) *dedup.Index {
	index := dedup.NewIndex(p.cfg.FuzzyThreshold)

	window := tracker.Phase(p.cfg.HistoryTimeout, historyReserve)
	if window <= historyFloor {
		stats.HistoryDegraded = true
		p.log.Warn("skipping history load, not enough time", "window", window)
		return index
	}

	hctx, cancel := context.WithTimeout(ctx, window)
	defer cancel()

	records, err := p.store.LoadRecent(hctx, p.cfg.HistoryLoadLimit)
	if err != nil {
		stats.HistoryDegraded = true
		p.log.Warn("history load failed, dedup degraded to this run only", "error", err)
		return index
	}

	for _, rec := range records {
		if index.Seed(rec.Title, rec.Link, rec.ContentHash) {
			p.log.RecordHashCollision()
		}
	}
	p.log.Info("history loaded", "records", len(records))
	return index
}

// triagePhase walks entries newest first through the time window, the
// scorer and the dedup index. Sequential: the index grows as items are
// admitted, so order decides which of two near-duplicates wins.
func (p *Pipeline) triagePhase(articles []news.Article, index *dedup.Index, stats *Stats) []*news.ScoredArticle {
	cutoff := p.clock().Add(-time.Duration(p.cfg.HoursThreshold) * time.Hour)

	var queue []*news.ScoredArticle
	for _, a := range articles {
		if a.Published != nil && a.Published.Before(cutoff) {
			stats.SkippedTime++
			continue
		}

		result := p.engine.Score(a.Title, a.Summary)
		if result.Tier == scoring.TierLow {
			stats.SkippedTopic++
			stats.QueuedLow++
			continue
		}

		scored := news.NewScoredArticle(a, result)
		scored.Fingerprint = dedup.Fingerprint(a.Title)

		switch index.Check(scored.Fingerprint, a.Link, a.Title) {
		case dedup.MatchNone:
		case dedup.MatchFuzzy:
			p.log.RecordFuzzyMatch()
			fallthrough
		default:
			stats.SkippedDuplicate++
			continue
		}

		index.Admit(scored.Fingerprint, a.Link, a.Title)
		queue = append(queue, scored)

		switch scored.Tier {
		case scoring.TierHigh:
			stats.QueuedHigh++
		case scoring.TierMedium:
			stats.QueuedMedium++
		}
		p.log.Item("QUEUED", a.Source, a.Title, scored.Score, string(scored.Tier),
			scored.Candidates, scored.Topics)
	}

	// Highest score first; equal scores keep recency order from the fetch
	// phase sort.
	sort.SliceStable(queue, func(i, j int) bool {
		return queue[i].Score > queue[j].Score
	})
	return queue
}

func (p *Pipeline) publishPhase(ctx context.Context, tracker *budget.Tracker, queue []*news.ScoredArticle, stats *Stats) {
	posted := 0
	for i, art := range queue {
		if posted >= p.cfg.PublishBatchSize || tracker.Remaining() < publishFloor || !p.limiter.CanPost() {
			stats.Overflow = len(queue) - i
			break
		}

		delivered, duplicate := p.publishOne(ctx, tracker, art, stats)
		switch {
		case duplicate:
			stats.SkippedDuplicate++
		case delivered:
			posted++
			p.limiter.RecordPost()
			if posted < p.cfg.PublishBatchSize && tracker.Remaining() > delayReserve {
				p.sleep(p.cfg.InterPostDelay)
			}
		default:
			stats.Errors++
		}
	}
}

// publishOne claims the story in the history store first, then delivers.
// A claim that cannot be written means no delivery at all; a claim that
// sticks but fails to deliver is logged and counted under errors.
func (p *Pipeline) publishOne(ctx context.Context, tracker *budget.Tracker, art *news.ScoredArticle, stats *Stats) (delivered, duplicate bool) {
	saveWindow := tracker.Phase(p.cfg.HistoryTimeout, saveReserve)
	if saveWindow < saveFloor {
		// Not enough time left to even claim the story; leave it unclaimed
		// for the next run rather than start a write that cannot finish.
		p.log.Warn("no time left for history save, story deferred", "title", art.Title)
		return false, false
	}

	rec := history.PublishRecord{
		Link:        art.Link,
		Title:       art.Title,
		ContentHash: art.Fingerprint,
		Site:        art.Source,
		FeedURL:     art.FeedURL,
		CreatedAt:   p.clock().UTC().Format(time.RFC3339),
	}
	if art.Published != nil {
		rec.PublishedAt = art.Published.UTC().Format(time.RFC3339)
	}

	sctx, cancel := context.WithTimeout(ctx, saveWindow)
	created, err := p.store.Save(sctx, rec)
	cancel()
	if err != nil {
		p.log.Warn("history save failed, story abandoned",
			"title", art.Title, "error", err)
		return false, false
	}
	if !created {
		return false, true
	}

	var imgs []string
	if window := tracker.Phase(p.cfg.ImageScrapeTimeout, imagesReserve); window > imagesFloor {
		ictx, cancel := context.WithTimeout(ctx, window)
		imgs = p.collector.Collect(ictx, art.Item, art.Link)
		cancel()
	}

	text := p.captions.Build(art)

	postWindow := tracker.Phase(p.cfg.PlatformTimeout, postReserve)
	if postWindow < postFloor {
		postWindow = postFloor
	}

	// Platforms deliver independently and concurrently; one failing or
	// stalling must not cost the other its slot.
	var (
		mu        sync.Mutex
		okAny     bool
		succeeded []string
		wg        sync.WaitGroup
	)
	for _, poster := range p.posters {
		if !poster.Enabled() {
			continue
		}
		wg.Add(1)
		go func(poster platform.Poster) {
			defer wg.Done()
			pctx, cancel := context.WithTimeout(ctx, postWindow)
			defer cancel()
			if poster.Post(pctx, imgs, text) {
				mu.Lock()
				okAny = true
				succeeded = append(succeeded, poster.Name())
				mu.Unlock()
			}
		}(poster)
	}
	wg.Wait()

	if !okAny {
		// The claim is already durable; the story is lost to delivery.
		p.log.Warn("claimed but undelivered", "title", art.Title)
		return false, false
	}

	for _, name := range succeeded {
		stats.Posted[name]++
	}
	p.log.Item("POSTED", art.Source, art.Title, art.Score, string(art.Tier),
		art.Candidates, art.Topics)
	return true, false
}
