package feeds

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/candidatory/electionbot/internal/caption"
	"github.com/candidatory/electionbot/internal/logger"
	"github.com/candidatory/electionbot/internal/news"
	"github.com/candidatory/electionbot/internal/retry"
)

const userAgent = "Mozilla/5.0 (compatible; ElectionBot/6.0)"

// Config controls per-source retrieval behavior.
type Config struct {
	AttemptTimeout time.Duration
	MaxRetries     int
	RetryBase      time.Duration
	MaxDescChars   int
	MaxConcurrent  int
}

// Stats summarizes one fetch round.
type Stats struct {
	OK      int
	Failed  int
	Retries int
}

// Fetcher retrieves all sources concurrently. Each source is independent and
// failure-isolated: one feed's error never aborts the others.
type Fetcher struct {
	client *http.Client
	cfg    Config
	log    *logger.Logger
}

// NewFetcher builds a fetcher. The per-attempt timeout is enforced via
// request contexts so a stalled source cannot outlive its share.
func NewFetcher(cfg Config, log *logger.Logger) *Fetcher {
	return &Fetcher{
		client: &http.Client{},
		cfg:    cfg,
		log:    log,
	}
}

// FetchAll requests every source concurrently and returns whatever completed
// before ctx expired. Partial results, not failure.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) ([]news.Article, Stats) {
	var (
		mu    sync.Mutex
		all   []news.Article
		stats Stats
	)

	g, gctx := errgroup.WithContext(ctx)
	limit := len(sources)
	if f.cfg.MaxConcurrent > 0 && limit > f.cfg.MaxConcurrent {
		limit = f.cfg.MaxConcurrent
	}
	if limit > 0 {
		g.SetLimit(limit)
	}

	for _, src := range sources {
		src := src
		g.Go(func() error {
			arts, retries, err := f.fetchSource(gctx, src)

			mu.Lock()
			defer mu.Unlock()
			stats.Retries += retries
			if err != nil {
				stats.Failed++
				f.log.Error("feed failed", "source", src.Name, "error", err)
				return nil
			}
			stats.OK++
			all = append(all, arts...)
			return nil
		})
	}
	g.Wait()

	return all, stats
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source) ([]news.Article, int, error) {
	var articles []news.Article

	attempts, err := retry.WithRetry(ctx, retry.Config{
		MaxAttempts: f.cfg.MaxRetries,
		Delay:       f.cfg.RetryBase,
		Backoff:     true,
	}, func() error {
		arts, err := f.fetchOnce(ctx, src)
		if err != nil {
			return err
		}
		articles = arts
		return nil
	})

	return articles, attempts - 1, err
}

// fetchOnce performs a single attempt. A 404 or a malformed document is
// definitive: it yields zero entries without retrying. Transport errors and
// non-2xx statuses are transient and bubble up for retry.
func (f *Fetcher) fetchOnce(ctx context.Context, src Source) ([]news.Article, error) {
	actx, cancel := context.WithTimeout(ctx, f.cfg.AttemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(actx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("%s: %w", src.Name, err))
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, */*")

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", src.Name, err)
	}
	defer resp.Body.Close()

	f.log.FeedLatency(src.Name, float64(time.Since(start).Microseconds())/1000.0)

	if resp.StatusCode == http.StatusNotFound {
		f.log.Warn("feed not found", "source", src.Name)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: HTTP %d", src.Name, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: read body: %w", src.Name, err)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		f.log.Warn("malformed feed", "source", src.Name, "error", err)
		return nil, nil
	}

	entries := make([]news.Article, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		raw := item.Description
		if raw == "" {
			raw = item.Content
		}
		desc := caption.Truncate(caption.StripHTML(raw), f.cfg.MaxDescChars)

		pub := item.PublishedParsed
		if pub == nil {
			pub = item.UpdatedParsed
		}

		entries = append(entries, news.Article{
			Title:     title,
			Link:      link,
			Summary:   desc,
			Published: pub,
			Source:    src.Name,
			FeedURL:   src.URL,
			Item:      item,
		})
	}

	f.log.Info("feed fetched", "source", src.Name, "entries", len(entries))
	return entries, nil
}
