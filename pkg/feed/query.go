package feed

import (
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/elonfeng/newspulse/pkg/hotness"
	"github.com/elonfeng/newspulse/pkg/source"
	"github.com/elonfeng/newspulse/pkg/topics"
)

// DefaultPageSize is used when a query does not set one.
const DefaultPageSize = 30

// MaxPageSize caps a single page.
const MaxPageSize = 200

// SortOrder selects how stories are ordered.
type SortOrder string

const (
	SortHot      SortOrder = "hot"
	SortPoints   SortOrder = "points"
	SortComments SortOrder = "comments"
	SortNewest   SortOrder = "newest"
)

// ParseSort validates a sort name. Empty means hot.
func ParseSort(s string) (SortOrder, error) {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case "":
		return SortHot, nil
	case SortHot, SortPoints, SortComments, SortNewest:
		return o, nil
	}
	return "", fmt.Errorf("unknown sort order %q", s)
}

// Query filters, sorts and pages the latest snapshot.
type Query struct {
	Source   string        // source type or short name
	Search   string        // case-insensitive substring of title or description
	Topic    string        // topic word, matched against title tokens
	MinLevel hotness.Level // stories without hotness are dropped when set
	Sort     SortOrder
	Page     int // 1-based
	PageSize int
}

// Page is one page of query results.
type Page struct {
	Stories  []AnnotatedStory `json:"stories"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
	HasMore  bool             `json:"has_more"`
}

// Query runs q against the latest snapshot.
func (e *Engine) Query(q Query) (Page, error) {
	all, err := e.stories()
	if err != nil {
		return Page{}, err
	}

	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageSize > MaxPageSize {
		q.PageSize = MaxPageSize
	}

	matched := make([]AnnotatedStory, 0, len(all))
	for _, s := range all {
		if q.matches(s) {
			matched = append(matched, s)
		}
	}
	sortStories(matched, q.Sort)

	page := Page{Total: len(matched), Page: q.Page, PageSize: q.PageSize}
	// Divide before multiplying so huge page numbers cannot overflow.
	if q.Page-1 > len(matched)/q.PageSize || (q.Page-1)*q.PageSize >= len(matched) {
		page.Stories = []AnnotatedStory{}
		return page, nil
	}
	start := (q.Page - 1) * q.PageSize
	end := min(start+q.PageSize, len(matched))
	page.Stories = matched[start:end]
	page.HasMore = end < len(matched)
	return page, nil
}

func (q Query) matches(s AnnotatedStory) bool {
	if q.Source != "" {
		want := strings.ToLower(strings.TrimSpace(q.Source))
		if want != string(s.Source) && want != source.ShortName(s.Source) {
			return false
		}
	}
	if q.Search != "" {
		needle := strings.ToLower(q.Search)
		if !strings.Contains(strings.ToLower(s.Title), needle) &&
			!strings.Contains(strings.ToLower(s.Description), needle) {
			return false
		}
	}
	if q.Topic != "" {
		if !slices.Contains(topics.Tokenize(s.Title), strings.ToLower(strings.TrimSpace(q.Topic))) {
			return false
		}
	}
	if q.MinLevel != "" {
		if s.Hotness == nil || s.Hotness.Level.Rank() < q.MinLevel.Rank() {
			return false
		}
	}
	return true
}

// sortStories orders in place. Stories missing the sort key go last; ties
// keep fetch order.
func sortStories(ss []AnnotatedStory, order SortOrder) {
	switch order {
	case SortPoints:
		sort.SliceStable(ss, func(i, j int) bool {
			return lessPtr(ss[i].Points, ss[j].Points)
		})
	case SortComments:
		sort.SliceStable(ss, func(i, j int) bool {
			return lessPtr(ss[i].CommentCount, ss[j].CommentCount)
		})
	case SortNewest:
		sort.SliceStable(ss, func(i, j int) bool {
			a, b := ss[i].Timestamp, ss[j].Timestamp
			if a.IsZero() != b.IsZero() {
				return !a.IsZero()
			}
			return a.After(b)
		})
	default:
		sort.SliceStable(ss, func(i, j int) bool {
			a, b := ss[i].Hotness, ss[j].Hotness
			if (a == nil) != (b == nil) {
				return a != nil
			}
			if a == nil {
				return false
			}
			return a.Score > b.Score
		})
	}
}

// lessPtr sorts descending with nil last.
func lessPtr(a, b *int) bool {
	if (a == nil) != (b == nil) {
		return a != nil
	}
	if a == nil {
		return false
	}
	return *a > *b
}
