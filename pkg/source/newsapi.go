package source

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/elonfeng/newspulse/pkg/story"
)

const newsAPIBaseURL = "https://newsapi.org/v2"

// ErrNoAPIKey is returned by collectors that need a key but were given none.
var ErrNoAPIKey = errors.New("api key not configured")

// NewsAPI collects headlines from newsapi.org. Headlines carry no engagement
// metrics, so Points and CommentCount stay nil.
type NewsAPI struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	country  string
	category string
	pageSize int
	filter   *Filter
}

// NewNewsAPI creates a top-headlines collector.
func NewNewsAPI(apiKey, country, category string, pageSize int, filter *Filter) *NewsAPI {
	if country == "" {
		country = "us"
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 30
	}
	return &NewsAPI{
		client:   &http.Client{Timeout: 30 * time.Second},
		baseURL:  newsAPIBaseURL,
		apiKey:   apiKey,
		country:  country,
		category: category,
		pageSize: pageSize,
		filter:   filter,
	}
}

// WithBaseURL overrides the API endpoint.
func (n *NewsAPI) WithBaseURL(u string) *NewsAPI {
	n.baseURL = strings.TrimRight(u, "/")
	return n
}

func (n *NewsAPI) Name() story.SourceType { return story.SourceNewsAPI }

type newsAPIResponse struct {
	Status       string           `json:"status"`
	Code         string           `json:"code"`
	Message      string           `json:"message"`
	TotalResults int              `json:"totalResults"`
	Articles     []newsAPIArticle `json:"articles"`
}

type newsAPIArticle struct {
	Source struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (n *NewsAPI) Fetch(ctx context.Context) ([]story.Story, error) {
	if n.apiKey == "" {
		return nil, fmt.Errorf("newsapi: %w", ErrNoAPIKey)
	}

	q := url.Values{}
	q.Set("country", n.country)
	if n.category != "" {
		q.Set("category", n.category)
	}
	q.Set("pageSize", strconv.Itoa(n.pageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.baseURL+"/top-headlines?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create newsapi request: %w", err)
	}
	req.Header.Set("X-Api-Key", n.apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch newsapi headlines: %w", err)
	}
	defer resp.Body.Close()

	var body newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode newsapi response (status %d): %w", resp.StatusCode, err)
	}
	if body.Status != "ok" {
		return nil, fmt.Errorf("newsapi %s: %s", body.Code, body.Message)
	}

	stories := make([]story.Story, 0, len(body.Articles))
	for _, a := range body.Articles {
		// NewsAPI keeps placeholders for articles pulled by the publisher.
		if a.Title == "" || a.Title == "[Removed]" || a.URL == "" {
			continue
		}
		if n.filter != nil && !n.filter.Match(a.Title+" "+a.URL) {
			continue
		}
		stories = append(stories, a.toStory())
	}
	return stories, nil
}

func (a newsAPIArticle) toStory() story.Story {
	sum := sha1.Sum([]byte(a.URL))
	s := story.Story{
		ID:          "newsapi:" + hex.EncodeToString(sum[:8]),
		Source:      story.SourceNewsAPI,
		SourceName:  a.Source.Name,
		Title:       a.Title,
		URL:         a.URL,
		Author:      a.Author,
		Description: a.Description,
	}
	if t, err := time.Parse(time.RFC3339, a.PublishedAt); err == nil {
		s.Timestamp = t.UTC()
	}
	return s
}
