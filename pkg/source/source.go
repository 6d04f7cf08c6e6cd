package source

import (
	"context"
	"strings"

	"github.com/elonfeng/newspulse/pkg/story"
)

// Source is the interface every story collector implements.
type Source interface {
	Name() story.SourceType
	Fetch(ctx context.Context) ([]story.Story, error)
}

// ShortName returns the flag-friendly alias of a source type.
func ShortName(st story.SourceType) string {
	switch st {
	case story.SourceHackerNews:
		return "hn"
	case story.SourceNewsAPI:
		return "news"
	case story.SourceRSS:
		return "rss"
	}
	return string(st)
}

// Select keeps the sources whose name or short name is in wanted
// (case-insensitive).
// An empty wanted list keeps everything.
func Select(sources []Source, wanted []string) []Source {
	if len(wanted) == 0 {
		return sources
	}
	keep := make(map[string]bool, len(wanted))
	for _, w := range wanted {
		keep[strings.ToLower(strings.TrimSpace(w))] = true
	}
	var out []Source
	for _, s := range sources {
		if keep[string(s.Name())] || keep[ShortName(s.Name())] {
			out = append(out, s)
		}
	}
	return out
}
