package alert

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/elonfeng/newspulse/pkg/feed"
)

// Notification is the data sent to alert destinations.
type Notification struct {
	StoryID     string    `json:"story_id"`
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source"`
	Level       string    `json:"level"`
	Score       float64   `json:"score"`
	Velocity    float64   `json:"velocity"`
	Reason      string    `json:"reason"`
	Points      *int      `json:"points"`
	Comments    *int      `json:"comment_count"`
	PublishedAt time.Time `json:"published_at"`
}

// NewNotification builds a notification for an annotated story.
func NewNotification(s feed.AnnotatedStory) *Notification {
	n := &Notification{
		StoryID:     s.ID,
		Title:       s.Title,
		URL:         s.URL,
		Source:      s.SourceName,
		Reason:      s.WhyHot,
		Points:      s.Points,
		Comments:    s.CommentCount,
		PublishedAt: s.Timestamp,
	}
	if n.Source == "" {
		n.Source = string(s.Source)
	}
	if s.Hotness != nil {
		n.Level = string(s.Hotness.Level)
		n.Score = s.Hotness.Score
		n.Velocity = s.Hotness.Velocity
	}
	return n
}

// stats renders the engagement line shared by chat notifiers.
func (n *Notification) stats() string {
	line := fmt.Sprintf("%s | score %.1f", n.Source, n.Score)
	if n.Points != nil {
		line += fmt.Sprintf(" | %d points", *n.Points)
	}
	if n.Comments != nil {
		line += fmt.Sprintf(" | %d comments", *n.Comments)
	}
	return line
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Broadcast sends a notification to all registered notifiers. Every notifier
// is tried; failures are joined.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}
