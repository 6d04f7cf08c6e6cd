package hotness

import (
	"fmt"
	"time"

	"github.com/elonfeng/newspulse/pkg/story"
)

// DiscussionLevel classifies how heavily a story is being discussed.
type DiscussionLevel string

const (
	DiscussionIntense       DiscussionLevel = "intense"
	DiscussionControversial DiscussionLevel = "controversial"
	DiscussionActive        DiscussionLevel = "active"
)

const (
	// MinComments is the floor below which no discussion signal exists.
	MinComments = 10

	IntenseComments       = 200
	ControversialRatio    = 2.0
	ControversialComments = 50
	ActiveComments        = 100
)

// Discussion is the secondary signal derived from comment volume.
type Discussion struct {
	Level  DiscussionLevel `json:"level"`
	Reason string          `json:"reason"`
}

type discussionRule struct {
	match  func(comments int, ratio float64) bool
	level  DiscussionLevel
	reason func(comments int) string
}

// discussionRules is evaluated top to bottom, first match wins.
var discussionRules = []discussionRule{
	{
		match:  func(c int, _ float64) bool { return c >= IntenseComments },
		level:  DiscussionIntense,
		reason: func(c int) string { return fmt.Sprintf("💬 %d comments", c) },
	},
	{
		// Debate out of proportion to popularity.
		match:  func(c int, ratio float64) bool { return ratio > ControversialRatio && c >= ControversialComments },
		level:  DiscussionControversial,
		reason: func(int) string { return "⚡ Heated debate" },
	},
	{
		match:  func(c int, _ float64) bool { return c >= ActiveComments },
		level:  DiscussionActive,
		reason: func(int) string { return "💬 Active discussion" },
	},
}

// CalculateDiscussion returns nil when commentCount is below MinComments or
// when no rule matches.
func CalculateDiscussion(commentCount, points int) *Discussion {
	if commentCount < MinComments {
		return nil
	}
	ratio := 0.0
	if points > 0 {
		ratio = float64(commentCount) / float64(points)
	}
	for _, r := range discussionRules {
		if r.match(commentCount, ratio) {
			return &Discussion{Level: r.level, Reason: r.reason(commentCount)}
		}
	}
	return nil
}

// Explanation bundles both signals for one story plus the single reason shown
// to the reader.
type Explanation struct {
	Hotness    *Result     `json:"hotness,omitempty"`
	Discussion *Discussion `json:"discussion,omitempty"`
	WhyHot     string      `json:"why_hot,omitempty"`
}

// Explain computes hotness and discussion for s as of now.
func Explain(s story.Story) Explanation {
	return ExplainAt(s, time.Now())
}

// ExplainAt is Explain with an explicit clock. Stories without points get no
// hotness; stories without a comment count get no discussion signal.
func ExplainAt(s story.Story, now time.Time) Explanation {
	var e Explanation
	if s.Points != nil {
		r := CalculateAt(*s.Points, s.Timestamp, now)
		e.Hotness = &r
	}
	if s.CommentCount != nil {
		e.Discussion = CalculateDiscussion(*s.CommentCount, s.PointsOr0())
	}

	switch {
	case e.Hotness != nil && e.Hotness.Reason != "":
		e.WhyHot = e.Hotness.Reason
	case e.Discussion != nil:
		e.WhyHot = e.Discussion.Reason
	}
	return e
}

// WhyItsHot returns the one reason surfaced for s, or "" when there is none.
// The hotness reason wins over the discussion reason.
func WhyItsHot(s story.Story) string {
	return Explain(s).WhyHot
}

// WhyItsHotAt is WhyItsHot with an explicit clock.
func WhyItsHotAt(s story.Story, now time.Time) string {
	return ExplainAt(s, now).WhyHot
}
