// Package history is the client for the published-news document store
// (Appwrite-compatible REST API). Its create-by-key operation doubles as the
// cross-process dedup gate: a key conflict means another run already claimed
// the story.
package history

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/candidatory/electionbot/internal/logger"
)

// Config locates the history collection.
type Config struct {
	Endpoint     string
	ProjectID    string
	APIKey       string
	DatabaseID   string
	CollectionID string
}

// Record is one previously published story, as loaded for dedup seeding.
type Record struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	ContentHash string `json:"content_hash"`
	Site        string `json:"site"`
}

// PublishRecord is the durable unit written on publish.
type PublishRecord struct {
	Link        string `json:"link"`
	Title       string `json:"title"`
	ContentHash string `json:"content_hash"`
	Site        string `json:"site"`
	FeedURL     string `json:"feed_url"`
	PublishedAt string `json:"published_at"`
	CreatedAt   string `json:"created_at"`
}

// Store talks to the documents endpoint of one collection.
type Store struct {
	url     string
	project string
	key     string
	client  *http.Client
	log     *logger.Logger
}

// NewStore builds a store client. Timeouts are driven by request contexts,
// not a client-wide deadline, so each call runs under its own budget.
func NewStore(cfg Config, log *logger.Logger) *Store {
	return &Store{
		url: fmt.Sprintf("%s/databases/%s/collections/%s/documents",
			cfg.Endpoint, cfg.DatabaseID, cfg.CollectionID),
		project: cfg.ProjectID,
		key:     cfg.APIKey,
		client:  &http.Client{},
		log:     log,
	}
}

func (s *Store) setHeaders(req *http.Request) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Appwrite-Project", s.project)
	req.Header.Set("X-Appwrite-Key", s.key)
}

// LoadRecent returns up to limit recent records, newest first. Best-effort:
// the caller treats an error as an empty list and degraded dedup.
func (s *Store) LoadRecent(ctx context.Context, limit int) ([]Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	s.setHeaders(req)

	q := req.URL.Query()
	q.Set("limit", strconv.Itoa(limit))
	q.Set("orderType", "DESC")
	req.URL.RawQuery = q.Encode()

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history load: HTTP %d", resp.StatusCode)
	}

	var payload struct {
		Documents []Record `json:"documents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("history load: decode: %w", err)
	}
	return payload.Documents, nil
}

// Save creates the history document keyed by the content fingerprint.
// Returns (false, nil) on a key conflict: the story was already published,
// which is a normal outcome, not an error.
func (s *Store) Save(ctx context.Context, rec PublishRecord) (bool, error) {
	docID := rec.ContentHash
	if len(docID) > 36 {
		docID = docID[:36]
	}

	body, err := json.Marshal(map[string]any{
		"documentId": docID,
		"data": PublishRecord{
			Link:        clampRunes(rec.Link, 700),
			Title:       clampRunes(rec.Title, 300),
			ContentHash: clampRunes(rec.ContentHash, 128),
			Site:        clampRunes(rec.Site, 100),
			FeedURL:     clampRunes(rec.FeedURL, 500),
			PublishedAt: rec.PublishedAt,
			CreatedAt:   rec.CreatedAt,
		},
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	s.setHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusCreated:
		return true, nil
	case http.StatusConflict:
		s.log.Info("history conflict, already published", "document_id", docID)
		return false, nil
	default:
		return false, fmt.Errorf("history save: HTTP %d", resp.StatusCode)
	}
}

func clampRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit])
}
