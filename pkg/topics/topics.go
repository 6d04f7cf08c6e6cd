// Package topics aggregates a weighted keyword frequency model over a batch
// of stories and ranks the words that are trending across them.
package topics

import (
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/elonfeng/newspulse/pkg/story"
)

const (
	// DefaultLimit is used when Extract is called with a non-positive limit.
	DefaultLimit = 15

	// TechBonus scales the weight of words in the tech keyword set.
	TechBonus = 1.5

	minTokenLen = 2
	maxTokenLen = 20
	// minStories is how many distinct stories a word needs to trend.
	minStories = 2
)

// Topic is one trending word.
type Topic struct {
	Word      string  `json:"word"`
	Count     int     `json:"count"`
	Weight    float64 `json:"weight"`
	AvgPoints float64 `json:"avg_points"`
	IsTech    bool    `json:"is_tech"`
}

// SizeClass buckets a topic weight for display.
type SizeClass string

const (
	SizeXS SizeClass = "xs"
	SizeSM SizeClass = "sm"
	SizeMD SizeClass = "md"
	SizeLG SizeClass = "lg"
	SizeXL SizeClass = "xl"
)

var nonWordRe = regexp.MustCompile(`[^\w\s-]`)

// Tokenize returns the distinct countable words of a title in first-seen order.
func Tokenize(title string) []string {
	cleaned := nonWordRe.ReplaceAllString(strings.ToLower(title), " ")

	seen := make(map[string]struct{})
	var tokens []string
	for _, w := range strings.Fields(cleaned) {
		if len(w) < minTokenLen || len(w) > maxTokenLen {
			continue
		}
		if IsStopWord(w) || allDigits(w) {
			continue
		}
		if _, dup := seen[w]; dup {
			continue
		}
		seen[w] = struct{}{}
		tokens = append(tokens, w)
	}
	return tokens
}

type tally struct {
	word   string
	count  int
	points int
	weight float64
}

// Extract returns up to limit trending topics across stories, heaviest first.
//
// A word counts once per story no matter how often the title repeats it, and a
// word found in fewer than two stories is never returned. Stories without a
// point count contribute 0 points.
func Extract(stories []story.Story, limit int) []Topic {
	if limit <= 0 {
		limit = DefaultLimit
	}

	index := make(map[string]int)
	var tallies []tally
	for _, s := range stories {
		if s.Title == "" {
			continue
		}
		points := s.PointsOr0()
		for _, w := range Tokenize(s.Title) {
			i, ok := index[w]
			if !ok {
				i = len(tallies)
				index[w] = i
				tallies = append(tallies, tally{word: w})
			}
			tallies[i].count++
			tallies[i].points += points
		}
	}

	trending := tallies[:0]
	for _, t := range tallies {
		if t.count < minStories {
			continue
		}
		t.weight = weight(t.word, t.count, avgPoints(t))
		trending = append(trending, t)
	}

	// Ties keep first-seen order.
	sort.SliceStable(trending, func(i, j int) bool {
		return trending[i].weight > trending[j].weight
	})

	if len(trending) > limit {
		trending = trending[:limit]
	}

	out := make([]Topic, len(trending))
	for i, t := range trending {
		out[i] = Topic{
			Word:      t.word,
			Count:     t.count,
			Weight:    round1(t.weight),
			AvgPoints: round1(avgPoints(t)),
			IsTech:    IsTechKeyword(t.word),
		}
	}
	return out
}

// weight grows with story count and, log-dampened, with average points, so a
// word in many moderately popular stories can outrank one in a few big ones.
func weight(word string, count int, avg float64) float64 {
	bonus := 1.0
	if IsTechKeyword(word) {
		bonus = TechBonus
	}
	return float64(count) * (1 + math.Log10(math.Max(avg, 1))) * bonus
}

func avgPoints(t tally) float64 {
	return float64(t.points) / float64(t.count)
}

// SizeClassFor buckets weight relative to the heaviest topic in the list.
func SizeClassFor(weight, maxWeight float64) SizeClass {
	if maxWeight <= 0 {
		return SizeXS
	}
	ratio := weight / maxWeight
	switch {
	case ratio >= 0.8:
		return SizeXL
	case ratio >= 0.6:
		return SizeLG
	case ratio >= 0.4:
		return SizeMD
	case ratio >= 0.2:
		return SizeSM
	default:
		return SizeXS
	}
}

// MaxWeight returns the largest weight in ts, or 0 for an empty list.
func MaxWeight(ts []Topic) float64 {
	var m float64
	for _, t := range ts {
		if t.Weight > m {
			m = t.Weight
		}
	}
	return m
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
