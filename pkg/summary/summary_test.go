package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elonfeng/newspulse/pkg/story"
)

type fakeFetcher struct {
	text  string
	err   error
	calls int
}

func (f *fakeFetcher) Extract(context.Context, string) (string, error) {
	f.calls++
	return f.text, f.err
}

type chatRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newOpenAIServer(t *testing.T, reply string, calls *int32, last *chatRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		atomic.AddInt32(calls, 1)
		if last != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(last))
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"id":"chatcmpl-1","object":"chat.completion","model":"gpt-4o-mini",
			"choices":[{"index":0,"message":{"role":"assistant","content":%q},"finish_reason":"stop"}]}`, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testStory() story.Story {
	return story.Story{
		ID:          "hackernews:42",
		Source:      story.SourceHackerNews,
		SourceName:  "Hacker News",
		Title:       "Rust 2.0 released",
		URL:         "https://blog.rust-lang.org/2.0",
		Description: "",
	}
}

func TestOpenAISummarizeUsesArticleAndCaches(t *testing.T) {
	var calls int32
	var req chatRequest
	srv := newOpenAIServer(t, "  Rust shipped a major release.  ", &calls, &req)

	fetcher := &fakeFetcher{text: "The Rust team announced version 2.0 today."}
	svc, err := New(Config{Provider: "openai", APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, WithFetcher(fetcher))
	require.NoError(t, err)

	out, err := svc.Summarize(context.Background(), testStory())
	require.NoError(t, err)
	assert.Equal(t, "Rust shipped a major release.", out)

	assert.Equal(t, defaultOpenAIModel, req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Contains(t, req.Messages[1].Content, "Title: Rust 2.0 released")
	assert.Contains(t, req.Messages[1].Content, "Source: Hacker News")
	assert.Contains(t, req.Messages[1].Content, "version 2.0 today")

	again, err := svc.Summarize(context.Background(), testStory())
	require.NoError(t, err)
	assert.Equal(t, out, again)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Equal(t, 1, fetcher.calls)
}

func TestSummarizeFallsBackToDescription(t *testing.T) {
	var calls int32
	var req chatRequest
	srv := newOpenAIServer(t, "ok", &calls, &req)

	fetcher := &fakeFetcher{err: errors.New("403")}
	svc, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", Model: "gpt-test"}, WithFetcher(fetcher))
	require.NoError(t, err)

	st := testStory()
	st.Description = "Headline blurb from the wire."
	_, err = svc.Summarize(context.Background(), st)
	require.NoError(t, err)
	assert.Equal(t, "gpt-test", req.Model)
	assert.Contains(t, req.Messages[1].Content, "Content: Headline blurb from the wire.")
}

func TestSummarizeFallsBackToTitle(t *testing.T) {
	var calls int32
	var req chatRequest
	srv := newOpenAIServer(t, "ok", &calls, &req)

	fetcher := &fakeFetcher{}
	svc, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, WithFetcher(fetcher))
	require.NoError(t, err)

	st := testStory()
	st.URL = "https://news.ycombinator.com/item?id=42"
	_, err = svc.Summarize(context.Background(), st)
	require.NoError(t, err)

	// Discussion pages are never scraped.
	assert.Equal(t, 0, fetcher.calls)
	assert.Contains(t, req.Messages[1].Content, "Content: Rust 2.0 released")
}

func TestSummarizeTruncatesContent(t *testing.T) {
	var calls int32
	var req chatRequest
	srv := newOpenAIServer(t, "ok", &calls, &req)

	fetcher := &fakeFetcher{text: strings.Repeat("é", 50)}
	svc, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1", MaxContent: 10}, WithFetcher(fetcher))
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), testStory())
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(req.Messages[1].Content, "Content: "+strings.Repeat("é", 10)))
}

func TestSummarizeErrorsAreNotCached(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
			return
		}
		fmt.Fprint(w, `{"choices":[{"index":0,"message":{"role":"assistant","content":"second try"}}]}`)
	}))
	defer srv.Close()

	svc, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, WithFetcher(&fakeFetcher{}))
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), testStory())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hackernews:42")

	out, err := svc.Summarize(context.Background(), testStory())
	require.NoError(t, err)
	assert.Equal(t, "second try", out)
}

func TestSummarizeEmptyResponse(t *testing.T) {
	var calls int32
	srv := newOpenAIServer(t, "   ", &calls, nil)
	svc, err := New(Config{APIKey: "sk-test", BaseURL: srv.URL + "/v1"}, WithFetcher(&fakeFetcher{}))
	require.NoError(t, err)

	_, err = svc.Summarize(context.Background(), testStory())
	assert.ErrorContains(t, err, "empty response")
}

func TestAnthropicSummarize(t *testing.T) {
	var got struct {
		Model     string `json:"model"`
		System    string `json:"system"`
		MaxTokens int    `json:"max_tokens"`
		Messages  []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "ak-test", r.Header.Get("x-api-key"))
		assert.Equal(t, "2023-06-01", r.Header.Get("anthropic-version"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		fmt.Fprint(w, `{"content":[{"type":"text","text":"Rust 2.0 is out."}]}`)
	}))
	defer srv.Close()

	svc, err := New(Config{Provider: "Anthropic", APIKey: "ak-test", BaseURL: srv.URL}, WithFetcher(&fakeFetcher{}))
	require.NoError(t, err)

	out, err := svc.Summarize(context.Background(), testStory())
	require.NoError(t, err)
	assert.Equal(t, "Rust 2.0 is out.", out)
	assert.Equal(t, defaultAnthropicModel, got.Model)
	assert.Equal(t, systemPrompt, got.System)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
}

func TestAnthropicErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"type":"error","error":{"type":"rate_limit_error"}}`)
	}))
	defer srv.Close()

	svc, err := New(Config{Provider: "anthropic", APIKey: "ak", BaseURL: srv.URL}, WithFetcher(&fakeFetcher{}))
	require.NoError(t, err)
	_, err = svc.Summarize(context.Background(), testStory())
	assert.ErrorContains(t, err, "anthropic status 429")
}

func TestNewValidation(t *testing.T) {
	_, err := New(Config{Provider: "openai"})
	assert.Error(t, err)

	_, err = New(Config{Provider: "gemini", APIKey: "k"})
	assert.ErrorContains(t, err, "unknown provider")
}

func TestServiceImplementsSummarizer(t *testing.T) {
	var _ Summarizer = (*Service)(nil)
}
