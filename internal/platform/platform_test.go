package platform

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/candidatory/electionbot/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.NewWithHandler(slog.NewTextHandler(io.Discard, nil))
}

func testClient(t *testing.T, handler http.HandlerFunc) (*Client, *logger.Logger) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	log := testLogger()
	c := newClient("Telegram", srv.URL+"/bot", "token", "@chan", 5, 2, log)
	return c, log
}

func decodeCall(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
	return payload
}

func apiOK(w http.ResponseWriter) {
	w.Write([]byte(`{"ok":true,"result":{}}`))
}

func apiFail(w http.ResponseWriter, code int) {
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": code})
}

func TestPostSendsAlbumWithCaptionOnFirstImage(t *testing.T) {
	var methods []string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.URL.Path)
		payload := decodeCall(t, r)

		media := payload["media"].([]any)
		assert.Len(t, media, 2)
		first := media[0].(map[string]any)
		assert.Equal(t, "متن خبر", first["caption"])
		second := media[1].(map[string]any)
		assert.NotContains(t, second, "caption")

		apiOK(w)
	})

	ok := c.Post(context.Background(), []string{"https://img/1.jpg", "https://img/2.jpg"}, "متن خبر")

	assert.True(t, ok)
	require.Len(t, methods, 1)
	assert.True(t, strings.HasSuffix(methods[0], "/sendMediaGroup"))
}

func TestPostDegradesAlbumToPhotoToText(t *testing.T) {
	var methods []string
	c, log := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.URL.Path[strings.LastIndex(r.URL.Path, "/")+1:])
		switch {
		case strings.Contains(r.URL.Path, "sendMediaGroup"), strings.Contains(r.URL.Path, "sendPhoto"):
			apiFail(w, http.StatusBadRequest)
		default:
			apiOK(w)
		}
	})

	ok := c.Post(context.Background(), []string{"https://img/1.jpg", "https://img/2.jpg"}, "متن")

	assert.True(t, ok)
	assert.Equal(t, []string{"sendMediaGroup", "sendPhoto", "sendMessage"}, methods)
	assert.Equal(t, 2, log.Metrics().PostFallbacks)
}

func TestPostTextOnlyWhenNoImages(t *testing.T) {
	var methods []string
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.URL.Path)
		payload := decodeCall(t, r)
		assert.Equal(t, "فقط متن", payload["text"])
		assert.Equal(t, "HTML", payload["parse_mode"])
		apiOK(w)
	})

	ok := c.Post(context.Background(), nil, "فقط متن")

	assert.True(t, ok)
	require.Len(t, methods, 1)
	assert.True(t, strings.HasSuffix(methods[0], "/sendMessage"))
}

func TestPostRetriesWholeChain(t *testing.T) {
	var calls int
	c, log := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			// First text attempt fails outright.
			apiFail(w, http.StatusBadGateway)
			return
		}
		apiOK(w)
	})

	ok := c.Post(context.Background(), nil, "متن")

	assert.True(t, ok)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, log.Metrics().PostRetries)
}

func TestPostAlbumCappedAtMaxImages(t *testing.T) {
	c, _ := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		payload := decodeCall(t, r)
		assert.Len(t, payload["media"].([]any), 5)
		apiOK(w)
	})

	images := []string{"u1", "u2", "u3", "u4", "u5", "u6", "u7"}
	assert.True(t, c.Post(context.Background(), images, "متن"))
}

func TestDisabledClientSucceedsVacuously(t *testing.T) {
	c := newClient("Bale", "https://unused/bot", "", "", 5, 2, testLogger())

	assert.False(t, c.Enabled())
	assert.True(t, c.Post(context.Background(), []string{"u1"}, "متن"))
}
