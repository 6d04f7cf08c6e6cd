package source

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/story"
)

// RSSFeed is a named RSS/Atom feed URL.
type RSSFeed struct {
	Name string
	URL  string
}

// RSS collects headlines from RSS/Atom feeds. Feed entries have no
// engagement metrics.
type RSS struct {
	client *http.Client
	parser *gofeed.Parser
	feeds  []RSSFeed
	maxAge time.Duration
	filter *Filter
}

// NewRSS creates a new RSS collector. Entries older than maxAge are skipped;
// zero keeps everything.
func NewRSS(feeds []RSSFeed, maxAge time.Duration, filter *Filter) *RSS {
	return &RSS{
		client: &http.Client{Timeout: 30 * time.Second},
		parser: gofeed.NewParser(),
		feeds:  feeds,
		maxAge: maxAge,
		filter: filter,
	}
}

func (r *RSS) Name() story.SourceType { return story.SourceRSS }

// Fetch reads every feed in turn. A failing feed is logged and skipped.
func (r *RSS) Fetch(ctx context.Context) ([]story.Story, error) {
	var all []story.Story

	for _, feed := range r.feeds {
		stories, err := r.fetchFeed(ctx, feed)
		if err != nil {
			logging.Warn("rss: feed failed", "feed", feed.Name, "err", err)
			continue
		}
		all = append(all, stories...)
	}

	return all, nil
}

func (r *RSS) fetchFeed(ctx context.Context, feed RSSFeed) ([]story.Story, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feed.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create rss request %s: %w", feed.Name, err)
	}
	req.Header.Set("User-Agent", "newspulse/1.0")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rss %s: %w", feed.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rss %s status %d", feed.Name, resp.StatusCode)
	}

	parsed, err := r.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse rss %s: %w", feed.Name, err)
	}

	var cutoff time.Time
	if r.maxAge > 0 {
		cutoff = time.Now().Add(-r.maxAge)
	}

	var stories []story.Story
	for _, entry := range parsed.Items {
		var published time.Time
		if entry.PublishedParsed != nil {
			published = entry.PublishedParsed.UTC()
		} else if entry.UpdatedParsed != nil {
			published = entry.UpdatedParsed.UTC()
		}

		if !cutoff.IsZero() && !published.IsZero() && published.Before(cutoff) {
			continue
		}

		link := entry.Link
		if link == "" && len(entry.Links) > 0 {
			link = entry.Links[0]
		}
		if r.filter != nil && !r.filter.Match(entry.Title+" "+link) {
			continue
		}

		guid := entry.GUID
		if guid == "" {
			guid = link
		}

		author := ""
		if entry.Author != nil {
			author = entry.Author.Name
		}

		stories = append(stories, story.Story{
			ID:          fmt.Sprintf("rss:%s:%s", feed.Name, guid),
			Source:      story.SourceRSS,
			SourceName:  feed.Name,
			Title:       entry.Title,
			URL:         link,
			Author:      author,
			Description: truncate(entry.Description, 500),
			Timestamp:   published,
		})
	}

	return stories, nil
}

// truncate cuts s to maxLen runes.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
