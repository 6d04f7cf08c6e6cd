package story

import "time"

// SourceType identifies which upstream a story came from.
type SourceType string

const (
	SourceHackerNews SourceType = "hackernews"
	SourceNewsAPI    SourceType = "newsapi"
	SourceRSS        SourceType = "rss"
)

// Story is the normalized record every source produces.
//
// Points and CommentCount are nil for sources without engagement metrics
// (headline APIs, feeds). A nil value means "not applicable", never zero.
// A zero Timestamp means the source gave no usable post time.
type Story struct {
	ID           string     `json:"id"`
	Source       SourceType `json:"source"`
	SourceName   string     `json:"source_name,omitempty"`
	Title        string     `json:"title"`
	URL          string     `json:"url"`
	Author       string     `json:"author,omitempty"`
	Description  string     `json:"description,omitempty"`
	Points       *int       `json:"points"`
	CommentCount *int       `json:"comment_count"`
	Timestamp    time.Time  `json:"timestamp"`
}

// PointsOr0 returns the point count, reading nil as 0.
func (s Story) PointsOr0() int {
	if s.Points == nil {
		return 0
	}
	return *s.Points
}

// Int returns a pointer to n. Sources use it to fill Points and CommentCount.
func Int(n int) *int {
	return &n
}
