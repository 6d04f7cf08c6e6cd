package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/story"
)

const hnBaseURL = "https://hacker-news.firebaseio.com/v0"

var hnLists = map[string]string{
	"top":  "topstories",
	"new":  "newstories",
	"best": "beststories",
	"ask":  "askstories",
	"show": "showstories",
}

// HackerNews collects stories from one of the Hacker News story lists.
type HackerNews struct {
	client  *http.Client
	baseURL string
	list    string
	limit   int
	workers int
	rps     float64
	limiter *rate.Limiter
	filter  *Filter
}

// HNOption configures a HackerNews collector.
type HNOption func(*HackerNews)

// WithHNBaseURL points the collector at another Firebase-compatible endpoint.
func WithHNBaseURL(u string) HNOption {
	return func(h *HackerNews) { h.baseURL = strings.TrimRight(u, "/") }
}

// WithHNConcurrency bounds how many item requests run at once.
func WithHNConcurrency(n int) HNOption {
	return func(h *HackerNews) {
		if n > 0 {
			h.workers = n
		}
	}
}

// WithHNRate caps item requests per second. A non-positive value disables the cap.
func WithHNRate(perSecond float64) HNOption {
	return func(h *HackerNews) { h.rps = perSecond }
}

// NewHackerNews creates a collector for list (top, new, best, ask, show).
// Unknown lists fall back to top.
func NewHackerNews(list string, limit int, filter *Filter, opts ...HNOption) *HackerNews {
	list = strings.ToLower(strings.TrimSpace(list))
	if _, ok := hnLists[list]; !ok {
		if list != "" {
			logging.Warn("hackernews: unknown list, using top", "list", list)
		}
		list = "top"
	}
	if limit <= 0 {
		limit = 30
	}
	h := &HackerNews{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: hnBaseURL,
		list:    list,
		limit:   limit,
		workers: 10,
		rps:     30,
		filter:  filter,
	}
	for _, opt := range opts {
		opt(h)
	}

	// Burst follows the final worker count, whatever the option order.
	if h.rps <= 0 {
		h.limiter = rate.NewLimiter(rate.Inf, 1)
	} else {
		h.limiter = rate.NewLimiter(rate.Limit(h.rps), h.workers)
	}
	return h
}

func (h *HackerNews) Name() story.SourceType { return story.SourceHackerNews }

// Fetch resolves the list's IDs into stories. Item requests fan out with
// bounded concurrency; an item that fails to load is dropped rather than
// failing the batch. List order is preserved.
func (h *HackerNews) Fetch(ctx context.Context) ([]story.Story, error) {
	ids, err := h.fetchIDs(ctx)
	if err != nil {
		return nil, err
	}
	if len(ids) > h.limit {
		ids = ids[:h.limit]
	}

	slots := make([]*story.Story, len(ids))
	var g errgroup.Group
	g.SetLimit(h.workers)

	for i, id := range ids {
		g.Go(func() error {
			if err := h.limiter.Wait(ctx); err != nil {
				return nil
			}
			item, err := h.fetchItem(ctx, id)
			if err != nil {
				logging.Debug("hackernews: dropping item", "id", id, "err", err)
				return nil
			}
			if item == nil {
				return nil
			}
			s := item.toStory()
			if h.filter != nil && !h.filter.Match(s.Title+" "+s.URL) {
				return nil
			}
			slots[i] = &s
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch hn items: %w", err)
	}

	stories := make([]story.Story, 0, len(slots))
	for _, s := range slots {
		if s != nil {
			stories = append(stories, *s)
		}
	}
	logging.Debug("hackernews: fetched", "list", h.list, "requested", len(ids), "kept", len(stories))
	return stories, nil
}

type hnItem struct {
	ID          int    `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Text        string `json:"text"`
	Score       int    `json:"score"`
	By          string `json:"by"`
	Time        int64  `json:"time"`
	Descendants int    `json:"descendants"`
	Deleted     bool   `json:"deleted"`
	Dead        bool   `json:"dead"`
}

func (it hnItem) toStory() story.Story {
	s := story.Story{
		ID:           fmt.Sprintf("hackernews:%d", it.ID),
		Source:       story.SourceHackerNews,
		SourceName:   "Hacker News",
		Title:        it.Title,
		URL:          it.URL,
		Author:       it.By,
		Description:  it.Text,
		Points:       story.Int(it.Score),
		CommentCount: story.Int(it.Descendants),
	}
	if it.Time > 0 {
		s.Timestamp = time.Unix(it.Time, 0).UTC()
	}
	if s.URL == "" {
		s.URL = fmt.Sprintf("https://news.ycombinator.com/item?id=%d", it.ID)
	}
	return s
}

func (h *HackerNews) fetchIDs(ctx context.Context) ([]int, error) {
	endpoint := fmt.Sprintf("%s/%s.json", h.baseURL, hnLists[h.list])
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create hn request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn %s: %w", h.list, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn %s status %d", h.list, resp.StatusCode)
	}

	var ids []int
	if err := json.NewDecoder(resp.Body).Decode(&ids); err != nil {
		return nil, fmt.Errorf("decode hn %s: %w", h.list, err)
	}
	return ids, nil
}

// fetchItem returns nil, nil for items that are not live stories.
func (h *HackerNews) fetchItem(ctx context.Context, id int) (*hnItem, error) {
	ictx, cancel := context.WithTimeout(ctx, 8*time.Second)
	defer cancel()

	url := fmt.Sprintf("%s/item/%d.json", h.baseURL, id)
	req, err := http.NewRequestWithContext(ictx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create hn item request: %w", err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch hn item %d: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("hn item %d status %d", id, resp.StatusCode)
	}

	var item hnItem
	if err := json.NewDecoder(resp.Body).Decode(&item); err != nil {
		return nil, fmt.Errorf("decode hn item %d: %w", id, err)
	}

	if item.Type != "story" || item.Deleted || item.Dead {
		return nil, nil
	}
	return &item, nil
}
