// Package images collects delivery media for an article: image URLs from the
// feed entry itself, with an og:image page scrape as the fallback.
package images

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

var imageBlocklist = []string{
	"doubleclick", "googletagmanager", "analytics",
	"pixel", "beacon", "tracking", "stat.", "stats.",
}

var imageHints = []string{"image", "photo", "img", "media", "cdn", "upload"}

// Collector gathers candidate image URLs, capped at maxImages.
type Collector struct {
	client    *http.Client
	maxImages int
}

// NewCollector creates a collector whose page fetches use the given timeout.
func NewCollector(timeout time.Duration, maxImages int) *Collector {
	return &Collector{
		client:    &http.Client{Timeout: timeout},
		maxImages: maxImages,
	}
}

// Collect returns up to maxImages image URLs for the entry. Absence of
// images is not an error; the publisher degrades to text-only.
func (c *Collector) Collect(ctx context.Context, item *gofeed.Item, link string) []string {
	imgs := c.fromItem(item)
	if len(imgs) == 0 && link != "" {
		if og := c.ogImage(ctx, link); og != "" {
			imgs = append(imgs, og)
		}
	}
	if len(imgs) > c.maxImages {
		imgs = imgs[:c.maxImages]
	}
	return imgs
}

type urlSet struct {
	seen map[string]struct{}
	urls []string
}

func (s *urlSet) add(url string) {
	url = strings.TrimSpace(url)
	if url == "" || !strings.HasPrefix(url, "http") {
		return
	}
	if _, dup := s.seen[url]; dup {
		return
	}
	lower := strings.ToLower(url)
	for _, b := range imageBlocklist {
		if strings.Contains(lower, b) {
			return
		}
	}
	if !looksLikeImage(lower) {
		return
	}
	s.seen[url] = struct{}{}
	s.urls = append(s.urls, url)
}

func looksLikeImage(lower string) bool {
	base := lower
	if i := strings.Index(base, "?"); i >= 0 {
		base = base[:i]
	}
	for _, e := range imageExtensions {
		if strings.HasSuffix(base, e) {
			return true
		}
	}
	for _, h := range imageHints {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

func (c *Collector) fromItem(item *gofeed.Item) []string {
	set := &urlSet{seen: make(map[string]struct{})}
	if item == nil {
		return nil
	}

	if item.Image != nil {
		set.add(item.Image.URL)
	}

	for _, m := range item.Extensions["media"]["content"] {
		u := m.Attrs["url"]
		if m.Attrs["medium"] == "image" || hasImageExtension(u) {
			set.add(u)
		}
	}
	for _, t := range item.Extensions["media"]["thumbnail"] {
		set.add(t.Attrs["url"])
	}

	for _, enc := range item.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") {
			set.add(enc.URL)
		}
	}

	if len(set.urls) < c.maxImages {
		raw := item.Content
		if raw == "" {
			raw = item.Description
		}
		if raw != "" {
			c.fromHTML(raw, set)
		}
	}

	return set.urls
}

func hasImageExtension(url string) bool {
	lower := strings.ToLower(url)
	for _, e := range imageExtensions {
		if strings.HasSuffix(lower, e) {
			return true
		}
	}
	return false
}

func (c *Collector) fromHTML(raw string, set *urlSet) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return
	}
	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		for _, attr := range []string{"src", "data-src", "data-lazy-src"} {
			if s, ok := sel.Attr(attr); ok && strings.HasPrefix(s, "http") {
				set.add(s)
				break
			}
		}
		return len(set.urls) < c.maxImages
	})
}

// ogImage fetches the article page and returns its og:image or
// twitter:image URL, if any.
func (c *Collector) ogImage(ctx context.Context, link string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return ""
	}

	for _, prop := range []string{"og:image", "twitter:image"} {
		sel := doc.Find(`meta[property="` + prop + `"]`)
		if sel.Length() == 0 {
			sel = doc.Find(`meta[name="` + prop + `"]`)
		}
		if content, ok := sel.First().Attr("content"); ok {
			content = strings.TrimSpace(content)
			if strings.HasPrefix(content, "http") {
				return content
			}
		}
	}
	return ""
}
