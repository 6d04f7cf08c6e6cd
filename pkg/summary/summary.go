// Package summary produces short AI summaries of stories. Article text is
// pulled with readability when possible; otherwise the story's own title and
// description are summarized.
package summary

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/story"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"

	defaultMaxContent = 4000
)

const systemPrompt = `You summarize news stories for a busy technical reader.
Write 2-3 plain sentences in English. State what happened and why it matters.
No preamble, no bullet points, no links.`

// Summarizer returns a short summary of a story.
type Summarizer interface {
	Summarize(ctx context.Context, s story.Story) (string, error)
}

// ContentFetcher returns the readable text of a web page.
type ContentFetcher interface {
	Extract(ctx context.Context, rawURL string) (string, error)
}

// Config selects and configures the LLM provider.
type Config struct {
	Provider   string
	Model      string
	APIKey     string
	BaseURL    string // optional, for compatible gateways
	MaxContent int    // max runes of article text sent to the model
}

type completer interface {
	complete(ctx context.Context, system, user string) (string, error)
}

// Service is a caching Summarizer backed by an LLM provider.
type Service struct {
	llm        completer
	fetcher    ContentFetcher
	maxContent int

	mu    sync.Mutex
	cache map[string]string
}

// Option configures a Service.
type Option func(*Service)

// WithFetcher replaces the default readability extractor.
func WithFetcher(f ContentFetcher) Option {
	return func(s *Service) { s.fetcher = f }
}

// New creates a Service for cfg.Provider ("openai" or "anthropic").
func New(cfg Config, opts ...Option) (*Service, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("summary: api key not configured")
	}

	var llm completer
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		llm = newOpenAI(cfg)
	case ProviderAnthropic:
		llm = newAnthropic(cfg)
	default:
		return nil, fmt.Errorf("summary: unknown provider %q", cfg.Provider)
	}

	maxContent := cfg.MaxContent
	if maxContent <= 0 {
		maxContent = defaultMaxContent
	}

	s := &Service{
		llm:        llm,
		fetcher:    NewExtractor(WithMaxContentLength(maxContent * 4)),
		maxContent: maxContent,
		cache:      make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Summarize returns the summary for st, calling the model at most once per
// story ID for the life of the Service. Failures are not cached.
func (s *Service) Summarize(ctx context.Context, st story.Story) (string, error) {
	s.mu.Lock()
	cached, ok := s.cache[st.ID]
	s.mu.Unlock()
	if ok {
		return cached, nil
	}

	content := s.content(ctx, st)
	user := fmt.Sprintf("Title: %s\nSource: %s\nContent: %s", st.Title, sourceLabel(st), content)

	out, err := s.llm.complete(ctx, systemPrompt, user)
	if err != nil {
		return "", fmt.Errorf("summarize %s: %w", st.ID, err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("summarize %s: empty response", st.ID)
	}

	s.mu.Lock()
	s.cache[st.ID] = out
	s.mu.Unlock()
	return out, nil
}

// content picks the text sent to the model: the article body when it can be
// extracted, else the description, else the title.
func (s *Service) content(ctx context.Context, st story.Story) string {
	var text string
	if st.URL != "" && !isDiscussionPage(st.URL) {
		extracted, err := s.fetcher.Extract(ctx, st.URL)
		if err != nil {
			logging.Debug("summary: extraction failed, using description", "id", st.ID, "err", err)
		}
		text = extracted
	}
	if strings.TrimSpace(text) == "" {
		text = st.Description
	}
	if strings.TrimSpace(text) == "" {
		text = st.Title
	}
	return truncateRunes(strings.TrimSpace(text), s.maxContent)
}

func sourceLabel(st story.Story) string {
	if st.SourceName != "" {
		return st.SourceName
	}
	return string(st.Source)
}

// isDiscussionPage reports whether u is an HN item page, whose text is
// already in the story description.
func isDiscussionPage(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil {
		return false
	}
	return parsed.Host == "news.ycombinator.com"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
