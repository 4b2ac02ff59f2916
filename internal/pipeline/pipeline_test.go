package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidatory/electionbot/internal/budget"
	"github.com/candidatory/electionbot/internal/caption"
	"github.com/candidatory/electionbot/internal/config"
	"github.com/candidatory/electionbot/internal/dedup"
	"github.com/candidatory/electionbot/internal/feeds"
	"github.com/candidatory/electionbot/internal/history"
	"github.com/candidatory/electionbot/internal/keywords"
	"github.com/candidatory/electionbot/internal/logger"
	"github.com/candidatory/electionbot/internal/news"
	"github.com/candidatory/electionbot/internal/platform"
	"github.com/candidatory/electionbot/internal/ratelimit"
	"github.com/candidatory/electionbot/internal/scoring"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type fakeFetcher struct {
	articles []news.Article
	stats    feeds.Stats

	called  bool
	onFetch func()
}

func (f *fakeFetcher) FetchAll(context.Context, []feeds.Source) ([]news.Article, feeds.Stats) {
	f.called = true
	if f.onFetch != nil {
		f.onFetch()
	}
	return f.articles, f.stats
}

type fakeStore struct {
	records []history.Record
	loadErr error
	saveFn  func(history.PublishRecord) (bool, error)

	loadCalled bool
	onLoad     func()
	saved      []history.PublishRecord
}

func (s *fakeStore) LoadRecent(context.Context, int) ([]history.Record, error) {
	s.loadCalled = true
	if s.onLoad != nil {
		s.onLoad()
	}
	return s.records, s.loadErr
}

func (s *fakeStore) Save(_ context.Context, rec history.PublishRecord) (bool, error) {
	s.saved = append(s.saved, rec)
	if s.saveFn != nil {
		return s.saveFn(rec)
	}
	return true, nil
}

type fakeCollector struct{}

func (fakeCollector) Collect(context.Context, *gofeed.Item, string) []string { return nil }

type fakePoster struct {
	name    string
	enabled bool
	ok      bool

	mu       sync.Mutex
	captions []string
}

func (p *fakePoster) Name() string  { return p.name }
func (p *fakePoster) Enabled() bool { return p.enabled }

func (p *fakePoster) Post(_ context.Context, _ []string, caption string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.captions = append(p.captions, caption)
	return p.ok
}

func (p *fakePoster) posted() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.captions)
}

func testConfig() *config.Config {
	return &config.Config{
		GlobalDeadline:     27 * time.Second,
		FeedsTotalTimeout:  10 * time.Second,
		HistoryTimeout:     5 * time.Second,
		ImageScrapeTimeout: 3 * time.Second,
		PlatformTimeout:    5 * time.Second,
		InterPostDelay:     time.Millisecond,
		PublishBatchSize:   4,
		MaxImages:          5,
		CaptionMax:         1024,
		HoursThreshold:     24,
		FuzzyThreshold:     0.55,
		RateLimitPerMinute: 8,
		HistoryLoadLimit:   500,
		ScoreHigh:          6,
		ScoreMedium:        3,
		ChannelHandle:      "@candidatoryiran",
	}
}

func testPipeline(cfg *config.Config, f *fakeFetcher, s *fakeStore, posters ...platform.Poster) *Pipeline {
	log := logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
	rules := keywords.DefaultRuleset()
	return &Pipeline{
		cfg:       cfg,
		log:       log,
		fetcher:   f,
		store:     s,
		collector: fakeCollector{},
		posters:   posters,
		engine:    scoring.NewEngine(rules, cfg.ScoreHigh, cfg.ScoreMedium),
		captions:  caption.NewBuilder(rules, cfg.ChannelHandle, cfg.CaptionMax),
		limiter:   ratelimit.New(cfg.RateLimitPerMinute),
		sleep:     func(time.Duration) {},
		clock:     time.Now,
	}
}

func recent() *time.Time {
	t := time.Now().Add(-time.Hour)
	return &t
}

func article(title, link string) news.Article {
	return news.Article{
		Title:     title,
		Link:      link,
		Published: recent(),
		Source:    "ISNA",
		FeedURL:   "https://isna/rss",
	}
}

func TestRunPublishesRelevantArticles(t *testing.T) {
	f := &fakeFetcher{
		articles: []news.Article{
			article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
			article("رد صلاحیت داوطلب انتخابات", "https://a/2"),
		},
		stats: feeds.Stats{OK: 1},
	}
	s := &fakeStore{}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	assert.Equal(t, "success", stats.Status)
	assert.Equal(t, 2, stats.EntriesTotal)
	assert.Equal(t, 2, stats.QueuedHigh)
	assert.Equal(t, 2, stats.Posted["Telegram"])
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, 0, stats.Overflow)
	assert.Equal(t, 2, poster.posted())
	require.Len(t, s.saved, 2)
	assert.NotEmpty(t, s.saved[0].ContentHash)
}

func TestRunSaveConflictSuppressesDelivery(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	s := &fakeStore{saveFn: func(history.PublishRecord) (bool, error) { return false, nil }}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	// Another run claimed the story first: nothing may reach a platform.
	assert.Equal(t, 0, poster.posted())
	assert.Equal(t, 1, stats.SkippedDuplicate)
	assert.Empty(t, stats.Posted)
	assert.Equal(t, 0, stats.Errors)
}

func TestRunSaveErrorCountsAsError(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	s := &fakeStore{saveFn: func(history.PublishRecord) (bool, error) {
		return false, errors.New("store down")
	}}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	assert.Equal(t, 0, poster.posted())
	assert.Equal(t, 1, stats.Errors)
}

func TestRunTriageSkipsOldAndIrrelevant(t *testing.T) {
	old := time.Now().Add(-48 * time.Hour)
	oldArticle := article("انتخابات ریاست جمهوری آغاز شد", "https://a/old")
	oldArticle.Published = &old

	f := &fakeFetcher{articles: []news.Article{
		oldArticle,
		article("آب و هوای امروز آفتابی است", "https://a/weather"),
	}}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, &fakeStore{}, poster).Run(context.Background())

	assert.Equal(t, 1, stats.SkippedTime)
	assert.Equal(t, 1, stats.SkippedTopic)
	assert.Equal(t, 1, stats.QueuedLow)
	assert.Equal(t, 0, poster.posted())
}

func TestRunDedupsWithinBatch(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
		article("آغاز شد انتخابات ریاست جمهوری", "https://b/1"),
	}}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, &fakeStore{}, poster).Run(context.Background())

	// Same token set, reordered: the second is a hash duplicate.
	assert.Equal(t, 1, stats.SkippedDuplicate)
	assert.Equal(t, 1, poster.posted())
}

func TestRunSeedsDedupFromHistory(t *testing.T) {
	title := "انتخابات ریاست جمهوری آغاز شد"
	f := &fakeFetcher{articles: []news.Article{article(title, "https://a/1")}}
	s := &fakeStore{records: []history.Record{
		{Title: title, Link: "https://other/1", ContentHash: dedup.Fingerprint(title)},
	}}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	assert.Equal(t, 1, stats.SkippedDuplicate)
	assert.Equal(t, 0, poster.posted())
	assert.False(t, stats.HistoryDegraded)
}

func TestRunHistoryFailureDegradesGracefully(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	s := &fakeStore{loadErr: errors.New("store down")}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	assert.True(t, stats.HistoryDegraded)
	// Publishing still proceeds; the save gate covers cross-run dedup.
	assert.Equal(t, 1, poster.posted())
}

func TestRunBatchSizeCausesOverflow(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات در تهران", "https://a/1"),
		article("انتخابات در شیراز", "https://a/2"),
		article("انتخابات در تبریز", "https://a/3"),
		article("انتخابات در اصفهان", "https://a/4"),
	}}
	cfg := testConfig()
	cfg.PublishBatchSize = 2
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(cfg, f, &fakeStore{}, poster).Run(context.Background())

	assert.Equal(t, 2, poster.posted())
	assert.Equal(t, 2, stats.Overflow)
}

func TestRunRateLimitCausesOverflow(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات در تهران", "https://a/1"),
		article("انتخابات در شیراز", "https://a/2"),
	}}
	cfg := testConfig()
	cfg.RateLimitPerMinute = 1
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	stats := testPipeline(cfg, f, &fakeStore{}, poster).Run(context.Background())

	assert.Equal(t, 1, poster.posted())
	assert.Equal(t, 1, stats.Overflow)
}

func TestRunDeliveryFailureCountsAsError(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	s := &fakeStore{}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: false}

	stats := testPipeline(testConfig(), f, s, poster).Run(context.Background())

	// The claim was written but no platform accepted the post.
	require.Len(t, s.saved, 1)
	assert.Equal(t, 1, stats.Errors)
	assert.Empty(t, stats.Posted)
}

func TestRunDisabledPosterIsIgnored(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	telegram := &fakePoster{name: "Telegram", enabled: true, ok: true}
	bale := &fakePoster{name: "Bale", enabled: false, ok: true}

	stats := testPipeline(testConfig(), f, &fakeStore{}, telegram, bale).Run(context.Background())

	assert.Equal(t, 1, stats.Posted["Telegram"])
	assert.NotContains(t, stats.Posted, "Bale")
	assert.Equal(t, 0, bale.posted())
}

func TestRunSkipsFetchWhenBudgetTooTight(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	cfg := testConfig()
	// 18s total leaves only 2s for fetch after its 16s reserve, below the
	// 3s floor.
	cfg.GlobalDeadline = 18 * time.Second
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	p := testPipeline(cfg, f, &fakeStore{}, poster)
	p.clock = newFakeClock().now
	stats := p.Run(context.Background())

	assert.False(t, f.called)
	assert.Equal(t, 0, stats.EntriesTotal)
	assert.Equal(t, 0, poster.posted())
	assert.Equal(t, "success", stats.Status)
}

func TestRunSkipsHistoryLoadUnderTimePressure(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFetcher{
		articles: []news.Article{article("انتخابات ریاست جمهوری آغاز شد", "https://a/1")},
		// A slow fetch round eats 8 of the 20 seconds.
		onFetch: func() { clock.advance(8 * time.Second) },
	}
	s := &fakeStore{}
	cfg := testConfig()
	cfg.GlobalDeadline = 20 * time.Second
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	p := testPipeline(cfg, f, s, poster)
	p.clock = clock.now
	stats := p.Run(context.Background())

	// 12s remain against the 12s history reserve: the load is skipped
	// without a network call and dedup degrades to this run only.
	assert.False(t, s.loadCalled)
	assert.True(t, stats.HistoryDegraded)
	// Publishing still fits: 12s remain, above the 8s floor.
	assert.Equal(t, 1, poster.posted())
}

func TestRunPublishFloorTalliesOverflow(t *testing.T) {
	clock := newFakeClock()
	f := &fakeFetcher{
		articles: []news.Article{
			article("انتخابات در تهران", "https://a/1"),
			article("انتخابات در شیراز", "https://a/2"),
		},
		onFetch: func() { clock.advance(12 * time.Second) },
	}
	s := &fakeStore{onLoad: func() { clock.advance(8 * time.Second) }}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	p := testPipeline(testConfig(), f, s, poster)
	p.clock = clock.now
	stats := p.Run(context.Background())

	// 7s remain at the publish loop, under its 8s floor: both queued items
	// become overflow and no delivery or claim is attempted.
	assert.True(t, s.loadCalled)
	assert.Equal(t, 2, stats.QueuedMedium)
	assert.Equal(t, 2, stats.Overflow)
	assert.Equal(t, 0, poster.posted())
	assert.Empty(t, s.saved)
	assert.Equal(t, 0, stats.Errors)
	assert.Equal(t, "success", stats.Status)
	assert.Equal(t, 20.0, stats.ElapsedSeconds)
}

func TestRunExhaustedBudgetStillReturnsSummary(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
	}}
	s := &fakeStore{}
	cfg := testConfig()
	cfg.GlobalDeadline = time.Second
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	p := testPipeline(cfg, f, s, poster)
	p.clock = newFakeClock().now
	stats := p.Run(context.Background())

	// Every phase refuses to start; no collaborator sees any traffic.
	assert.False(t, f.called)
	assert.False(t, s.loadCalled)
	assert.Equal(t, 0, poster.posted())
	assert.True(t, stats.HistoryDegraded)
	assert.Equal(t, "success", stats.Status)
}

func TestPublishOneAbortsSaveWithoutTime(t *testing.T) {
	clock := newFakeClock()
	s := &fakeStore{}
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	p := testPipeline(testConfig(), &fakeFetcher{}, s, poster)
	p.clock = clock.now

	tracker := budget.NewWithClock(p.cfg.GlobalDeadline, clock.now)
	clock.advance(21 * time.Second)

	art := news.NewScoredArticle(article("انتخابات ریاست جمهوری آغاز شد", "https://a/1"),
		scoring.Result{Score: 8, Tier: scoring.TierHigh})
	art.Fingerprint = dedup.Fingerprint(art.Title)

	stats := newStats()
	delivered, duplicate := p.publishOne(context.Background(), tracker, art, stats)

	// Under 1s of save budget: no store write, no delivery attempt.
	assert.False(t, delivered)
	assert.False(t, duplicate)
	assert.Empty(t, s.saved)
	assert.Equal(t, 0, poster.posted())
}

func TestRunHighScoresPublishFirst(t *testing.T) {
	f := &fakeFetcher{articles: []news.Article{
		article("انتخابات در تهران", "https://a/1"),
		article("رد صلاحیت داوطلب انتخابات توسط شورای نگهبان", "https://a/2"),
	}}
	cfg := testConfig()
	cfg.PublishBatchSize = 1
	poster := &fakePoster{name: "Telegram", enabled: true, ok: true}

	testPipeline(cfg, f, &fakeStore{}, poster).Run(context.Background())

	require.Equal(t, 1, poster.posted())
	poster.mu.Lock()
	defer poster.mu.Unlock()
	assert.Contains(t, poster.captions[0], "رد صلاحیت")
}
