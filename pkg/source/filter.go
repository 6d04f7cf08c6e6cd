package source

import "strings"

// Filter keeps or drops stories by keyword before they reach the dashboard.
type Filter struct {
	include []string
	exclude []string
}

// NewFilter creates a filter. An empty include list matches everything that
// is not excluded.
func NewFilter(include, exclude []string) *Filter {
	return &Filter{include: lowerAll(include), exclude: lowerAll(exclude)}
}

func lowerAll(words []string) []string {
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			out = append(out, w)
		}
	}
	return out
}

// Match returns true if text passes the exclude list and, when one is
// configured, contains an include keyword.
func (f *Filter) Match(text string) bool {
	lower := strings.ToLower(text)

	for _, ex := range f.exclude {
		if strings.Contains(lower, ex) {
			return false
		}
	}

	if len(f.include) == 0 {
		return true
	}
	for _, kw := range f.include {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
