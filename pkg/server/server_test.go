package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/newspulse/pkg/feed"
	"github.com/elonfeng/newspulse/pkg/source"
	"github.com/elonfeng/newspulse/pkg/story"
)

var now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

type stubSource struct {
	stories []story.Story
	err     error
}

func (s *stubSource) Name() story.SourceType { return story.SourceHackerNews }

func (s *stubSource) Fetch(context.Context) ([]story.Story, error) { return s.stories, s.err }

type fakeSummarizer struct {
	err error
	ids []string
}

func (f *fakeSummarizer) Summarize(_ context.Context, s story.Story) (string, error) {
	f.ids = append(f.ids, s.ID)
	if f.err != nil {
		return "", f.err
	}
	return "Short summary of " + s.Title, nil
}

func fixtureStories() []story.Story {
	at := func(h float64) time.Time { return now.Add(-time.Duration(h * float64(time.Hour))) }
	return []story.Story{
		{ID: "hackernews:1", Source: story.SourceHackerNews, Title: "Rust async runtime",
			Points: story.Int(1000), CommentCount: story.Int(20), Timestamp: at(10)},
		{ID: "hackernews:2", Source: story.SourceHackerNews, Title: "Rust compiler speedups",
			Points: story.Int(300), CommentCount: story.Int(5), Timestamp: at(10)},
		{ID: "rss:lobsters:https://lobste.rs/s/abc", Source: story.SourceRSS, Title: "Gardening with Python", Timestamp: at(1)},
	}
}

func newTestServer(t *testing.T, sum *fakeSummarizer, refresh bool) (*Server, *stubSource) {
	t.Helper()
	src := &stubSource{stories: fixtureStories()}
	engine := feed.NewEngine([]source.Source{src}, feed.WithClock(func() time.Time { return now }))
	if refresh {
		_, err := engine.Refresh(context.Background())
		require.NoError(t, err)
	}
	var s *Server
	if sum != nil {
		s = New(engine, sum, 0)
	} else {
		s = New(engine, nil, 0)
	}
	return s, src
}

func do(t *testing.T, s *Server, method, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	var body map[string]any
	if rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec, body
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, nil, true)
	rec, body := do(t, s, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["stories"])
}

func TestStories(t *testing.T) {
	s, _ := newTestServer(t, nil, true)

	rec, body := do(t, s, http.MethodGet, "/api/v1/stories?sort=hot")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["count"])
	assert.EqualValues(t, 3, body["total"])
	assert.EqualValues(t, 1, body["page"])
	assert.EqualValues(t, feed.DefaultPageSize, body["page_size"])
	assert.Equal(t, false, body["has_more"])

	data := body["data"].([]any)
	first := data[0].(map[string]any)
	assert.Equal(t, "hackernews:1", first["id"])
	assert.Equal(t, "🔥 100 pts/hr", first["why_hot"])
	assert.Equal(t, "fire", first["hotness"].(map[string]any)["level"])

	// Stories without engagement serialize explicit nulls.
	last := data[2].(map[string]any)
	assert.Nil(t, last["points"])
	assert.Nil(t, last["hotness"])
}

func TestStoriesFilters(t *testing.T) {
	s, _ := newTestServer(t, nil, true)

	_, body := do(t, s, http.MethodGet, "/api/v1/stories?topic=rust&level=warm&page_size=1")
	assert.EqualValues(t, 1, body["count"])
	assert.EqualValues(t, 2, body["total"])
	assert.Equal(t, true, body["has_more"])

	_, body = do(t, s, http.MethodGet, "/api/v1/stories?source=rss&q=garden")
	assert.EqualValues(t, 1, body["count"])
}

func TestStoriesBadParams(t *testing.T) {
	s, _ := newTestServer(t, nil, true)
	for _, target := range []string{
		"/api/v1/stories?sort=random",
		"/api/v1/stories?level=lukewarm",
		"/api/v1/stories?page=two",
		"/api/v1/stories?page_size=x",
	} {
		rec, body := do(t, s, http.MethodGet, target)
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.NotEmpty(t, body["error"], target)
	}
}

func TestStoriesHugePage(t *testing.T) {
	s, _ := newTestServer(t, nil, true)
	rec, body := do(t, s, http.MethodGet, "/api/v1/stories?page=307445734561825862")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, body["count"])
	assert.EqualValues(t, 3, body["total"])
	assert.Equal(t, []any{}, body["data"])
	assert.Equal(t, false, body["has_more"])
}

func TestStoriesBeforeRefresh(t *testing.T) {
	s, _ := newTestServer(t, nil, false)
	rec, body := do(t, s, http.MethodGet, "/api/v1/stories")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, feed.ErrNoSnapshot.Error(), body["error"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/topics")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestStoryByID(t *testing.T) {
	s, _ := newTestServer(t, nil, true)

	rec, body := do(t, s, http.MethodGet, "/api/v1/stories/hackernews:2")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hackernews:2", body["data"].(map[string]any)["id"])

	// IDs containing slashes must be path-escaped.
	rec, body = do(t, s, http.MethodGet, "/api/v1/stories/"+url.PathEscape("rss:lobsters:https://lobste.rs/s/abc"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Gardening with Python", body["data"].(map[string]any)["title"])

	rec, body = do(t, s, http.MethodGet, "/api/v1/stories/hackernews:404")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "story not found", body["error"])
}

func TestTopics(t *testing.T) {
	s, _ := newTestServer(t, nil, true)

	rec, body := do(t, s, http.MethodGet, "/api/v1/topics?limit=5")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["count"])
	topic := body["data"].([]any)[0].(map[string]any)
	assert.Equal(t, "rust", topic["word"])
	assert.Equal(t, "xl", topic["size"])

	rec, _ = do(t, s, http.MethodGet, "/api/v1/topics?limit=many")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRefresh(t *testing.T) {
	s, src := newTestServer(t, nil, false)

	rec, body := do(t, s, http.MethodPost, "/api/v1/refresh")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, body["data"].(map[string]any)["stories"])

	src.err = errors.New("firebase down")
	rec, body = do(t, s, http.MethodPost, "/api/v1/refresh")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "firebase down")

	rec, _ = do(t, s, http.MethodGet, "/api/v1/refresh")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestSummary(t *testing.T) {
	sum := &fakeSummarizer{}
	s, _ := newTestServer(t, sum, true)

	rec, body := do(t, s, http.MethodPost, "/api/v1/stories/hackernews:1/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "hackernews:1", data["story_id"])
	assert.Equal(t, "Short summary of Rust async runtime", data["summary"])
	assert.Equal(t, []string{"hackernews:1"}, sum.ids)

	rec, _ = do(t, s, http.MethodPost, "/api/v1/stories/nope/summary")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	sum.err = errors.New("rate limited")
	rec, body = do(t, s, http.MethodPost, "/api/v1/stories/hackernews:2/summary")
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, body["error"], "rate limited")
}

func TestSummaryDisabled(t *testing.T) {
	s, _ := newTestServer(t, nil, true)
	rec, body := do(t, s, http.MethodPost, "/api/v1/stories/hackernews:1/summary")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "summaries are not configured", body["error"])
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t, nil, false)
	s.port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
