package summary

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-shiori/go-readability"
)

// Extractor pulls the readable article text out of a web page.
type Extractor struct {
	httpClient    *http.Client
	maxContentLen int
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) ExtractorOption {
	return func(e *Extractor) {
		e.httpClient.Timeout = d
	}
}

// WithMaxContentLength caps the returned text in bytes.
func WithMaxContentLength(n int) ExtractorOption {
	return func(e *Extractor) {
		e.maxContentLen = n
	}
}

// NewExtractor creates a readability-based extractor.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	e := &Extractor{
		httpClient:    &http.Client{Timeout: 10 * time.Second},
		maxContentLen: 16000,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract fetches rawURL and returns its main text content.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (string, error) {
	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return "", fmt.Errorf("invalid URL: %s", rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; newspulse/1.0)")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	article, err := readability.FromReader(resp.Body, parsedURL)
	if err != nil {
		return "", fmt.Errorf("parse content: %w", err)
	}

	content := strings.TrimSpace(article.TextContent)
	if len(content) > e.maxContentLen {
		content = strings.ToValidUTF8(content[:e.maxContentLen], "")
	}
	return content, nil
}
