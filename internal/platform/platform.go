// Package platform delivers posts to messaging channels. Telegram and Bale
// expose the same Bot API shape over different base URLs, so one raw-HTTP
// client serves both.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/candidatory/electionbot/internal/logger"
)

const (
	telegramBaseURL = "https://api.telegram.org/bot"
	baleBaseURL     = "https://tapi.bale.ai/bot"
)

// Poster is one delivery channel. A platform that is not configured reports
// Enabled() false and its Post vacuously succeeds, so its absence never
// counts as an error.
type Poster interface {
	Name() string
	Enabled() bool
	Post(ctx context.Context, images []string, caption string) bool
}

// Client is a Telegram-compatible Bot API client.
type Client struct {
	name       string
	api        string
	chatID     string
	enabled    bool
	maxImages  int
	maxRetries int
	client     *http.Client
	log        *logger.Logger
}

// NewTelegram builds the Telegram channel client.
func NewTelegram(token, chatID string, maxImages, maxRetries int, log *logger.Logger) *Client {
	return newClient("Telegram", telegramBaseURL, token, chatID, maxImages, maxRetries, log)
}

// NewBale builds the Bale channel client (tapi.bale.ai speaks the Telegram
// Bot API dialect).
func NewBale(token, chatID string, maxImages, maxRetries int, log *logger.Logger) *Client {
	return newClient("Bale", baleBaseURL, token, chatID, maxImages, maxRetries, log)
}

func newClient(name, base, token, chatID string, maxImages, maxRetries int, log *logger.Logger) *Client {
	return &Client{
		name:       name,
		api:        base + token,
		chatID:     chatID,
		enabled:    token != "" && chatID != "",
		maxImages:  maxImages,
		maxRetries: maxRetries,
		client:     &http.Client{},
		log:        log,
	}
}

func (c *Client) Name() string  { return c.name }
func (c *Client) Enabled() bool { return c.enabled }

// Post delivers one item with the degrade chain: album with caption on the
// first image, then single photo, then text-only. Whole-chain retries are
// bounded; a retry-after signal is honored only when the remaining budget
// comfortably covers the wait.
func (c *Client) Post(ctx context.Context, images []string, caption string) bool {
	if !c.enabled {
		return true
	}

	imgs := images
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 && len(imgs) > 1 {
			// Albums are the flakiest call; retry with a single image.
			imgs = imgs[:1]
		}

		ok, retryAfter := c.postChain(ctx, imgs, caption)
		if ok {
			return true
		}

		if retryAfter > 0 {
			c.log.Warn("rate limited by platform", "platform", c.name, "retry_after", retryAfter)
			c.log.RecordPostRetry()
			if !c.sleepWithinBudget(ctx, retryAfter) {
				return false
			}
			continue
		}

		if attempt < c.maxRetries-1 {
			c.log.RecordPostRetry()
		}
	}

	if len(images) > 0 {
		// Last resort: drop media entirely.
		c.log.RecordPostFallback()
		ok, _ := c.sendMessage(ctx, caption)
		return ok
	}
	return false
}

func (c *Client) postChain(ctx context.Context, imgs []string, caption string) (bool, time.Duration) {
	if len(imgs) >= 2 {
		album := imgs
		if len(album) > c.maxImages {
			album = album[:c.maxImages]
		}
		ok, ra := c.sendMediaGroup(ctx, album, caption)
		if ok {
			return true, 0
		}
		if ra > 0 {
			return false, ra
		}
		c.log.Warn("album failed, falling back to single photo", "platform", c.name)
		c.log.RecordPostFallback()
		imgs = imgs[:1]
	}

	if len(imgs) == 1 {
		ok, ra := c.sendPhoto(ctx, imgs[0], caption)
		if ok {
			return true, 0
		}
		if ra > 0 {
			return false, ra
		}
		c.log.Warn("photo failed, falling back to text", "platform", c.name)
		c.log.RecordPostFallback()
	}

	return c.sendMessage(ctx, caption)
}

// sleepWithinBudget waits out a platform backoff, but only when the context
// deadline leaves at least 2 seconds beyond the wait.
func (c *Client) sleepWithinBudget(ctx context.Context, wait time.Duration) bool {
	if wait > 2*time.Second {
		wait = 2 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		if time.Until(deadline) < wait+2*time.Second {
			return false
		}
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(wait):
		return true
	}
}

func (c *Client) sendMessage(ctx context.Context, text string) (bool, time.Duration) {
	return c.call(ctx, "sendMessage", map[string]any{
		"chat_id":                  c.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
		"disable_notification":     true,
	})
}

func (c *Client) sendPhoto(ctx context.Context, photoURL, caption string) (bool, time.Duration) {
	return c.call(ctx, "sendPhoto", map[string]any{
		"chat_id":              c.chatID,
		"photo":                photoURL,
		"caption":              caption,
		"parse_mode":           "HTML",
		"disable_notification": true,
	})
}

func (c *Client) sendMediaGroup(ctx context.Context, imageURLs []string, caption string) (bool, time.Duration) {
	media := make([]map[string]any, 0, len(imageURLs))
	for i, url := range imageURLs {
		item := map[string]any{"type": "photo", "media": url}
		if i == 0 && caption != "" {
			item["caption"] = caption
			item["parse_mode"] = "HTML"
		}
		media = append(media, item)
	}

	return c.call(ctx, "sendMediaGroup", map[string]any{
		"chat_id":              c.chatID,
		"media":                media,
		"disable_notification": true,
	})
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	ErrorCode   int    `json:"error_code"`
	Parameters  *struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

// call posts one Bot API method. The second return value is a non-zero
// retry-after duration when the platform sent a too-many-requests signal.
func (c *Client) call(ctx context.Context, method string, payload map[string]any) (bool, time.Duration) {
	body, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("marshal failed", "platform", c.name, "method", method, "error", err)
		return false, 0
	}

	url := fmt.Sprintf("%s/%s", c.api, method)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, 0
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn("request failed", "platform", c.name, "method", method, "error", err)
		return false, 0
	}
	defer resp.Body.Close()

	var api apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&api); err != nil {
		c.log.Warn("bad response", "platform", c.name, "method", method, "status", resp.StatusCode)
		return false, 0
	}

	if resp.StatusCode == http.StatusOK && api.OK {
		return true, 0
	}

	if resp.StatusCode == http.StatusTooManyRequests || api.ErrorCode == http.StatusTooManyRequests {
		after := time.Second
		if api.Parameters != nil && api.Parameters.RetryAfter > 0 {
			after = time.Duration(api.Parameters.RetryAfter) * time.Second
		}
		return false, after
	}

	c.log.Warn("api error", "platform", c.name, "method", method,
		"status", resp.StatusCode, "description", api.Description)
	return false, 0
}
