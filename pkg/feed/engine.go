package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/hotness"
	"github.com/elonfeng/newspulse/pkg/source"
	"github.com/elonfeng/newspulse/pkg/story"
	"github.com/elonfeng/newspulse/pkg/topics"
)

// ErrNoSnapshot is returned when nothing has been fetched yet.
var ErrNoSnapshot = errors.New("no stories fetched yet")

// AnnotatedStory is a story with its hotness and discussion signals.
type AnnotatedStory struct {
	story.Story
	Hotness    *hotness.Result     `json:"hotness"`
	Discussion *hotness.Discussion `json:"discussion"`
	WhyHot     string              `json:"why_hot,omitempty"`
}

// Snapshot is the result of one refresh.
type Snapshot struct {
	Stories   []AnnotatedStory            `json:"stories"`
	FetchedAt time.Time                   `json:"fetched_at"`
	Errors    map[story.SourceType]string `json:"errors,omitempty"`
}

// TopicView pairs a trending topic with its display size.
type TopicView struct {
	topics.Topic
	Size topics.SizeClass `json:"size"`
}

// Engine fetches stories from every source, annotates them and keeps the
// latest snapshot in memory.
type Engine struct {
	sources []source.Source
	workers int
	now     func() time.Time

	mu   sync.RWMutex
	snap *Snapshot
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithWorkers bounds how many sources are fetched at once.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// NewEngine creates a dashboard engine over sources.
func NewEngine(sources []source.Source, opts ...Option) *Engine {
	e := &Engine{
		sources: sources,
		workers: 4,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type fetchResult struct {
	stories []story.Story
	err     error
}

// Refresh fetches all sources in parallel and replaces the snapshot. A
// failing source is logged and contributes nothing. When every source fails
// the previous snapshot is kept and an error is returned.
func (e *Engine) Refresh(ctx context.Context) (*Snapshot, error) {
	if len(e.sources) == 0 {
		return nil, errors.New("no sources configured")
	}

	results := make([]fetchResult, len(e.sources))
	var g errgroup.Group
	g.SetLimit(e.workers)

	for i, src := range e.sources {
		g.Go(func() error {
			start := time.Now()
			stories, err := src.Fetch(ctx)
			results[i] = fetchResult{stories: stories, err: err}
			if err != nil {
				logging.Warn("feed: source failed", "source", src.Name(), "err", err)
				return nil
			}
			logging.Debug("feed: source fetched", "source", src.Name(), "stories", len(stories), "took", time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}

	now := e.now()
	snap := &Snapshot{FetchedAt: now}
	seen := make(map[string]bool)
	var errs []error

	for i, r := range results {
		if r.err != nil {
			if snap.Errors == nil {
				snap.Errors = make(map[story.SourceType]string)
			}
			snap.Errors[e.sources[i].Name()] = r.err.Error()
			errs = append(errs, fmt.Errorf("%s: %w", e.sources[i].Name(), r.err))
			continue
		}
		for _, s := range r.stories {
			if seen[s.ID] {
				continue
			}
			seen[s.ID] = true
			snap.Stories = append(snap.Stories, annotate(s, now))
		}
	}

	if len(errs) == len(e.sources) {
		return nil, fmt.Errorf("all sources failed: %w", errors.Join(errs...))
	}

	e.mu.Lock()
	e.snap = snap
	e.mu.Unlock()

	logging.Info("feed: refreshed", "stories", len(snap.Stories), "failed_sources", len(errs))
	return snap, nil
}

func annotate(s story.Story, now time.Time) AnnotatedStory {
	ex := hotness.ExplainAt(s, now)
	return AnnotatedStory{
		Story:      s,
		Hotness:    ex.Hotness,
		Discussion: ex.Discussion,
		WhyHot:     ex.WhyHot,
	}
}

// Snapshot returns the latest snapshot, or nil before the first refresh.
func (e *Engine) Snapshot() *Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

func (e *Engine) stories() ([]AnnotatedStory, error) {
	snap := e.Snapshot()
	if snap == nil {
		return nil, ErrNoSnapshot
	}
	return snap.Stories, nil
}

// Story looks up a story in the latest snapshot by ID.
func (e *Engine) Story(id string) (AnnotatedStory, bool) {
	all, err := e.stories()
	if err != nil {
		return AnnotatedStory{}, false
	}
	for _, s := range all {
		if s.ID == id {
			return s, true
		}
	}
	return AnnotatedStory{}, false
}

// Topics extracts the trending topics of the latest snapshot with their
// display size. limit <= 0 uses topics.DefaultLimit.
func (e *Engine) Topics(limit int) ([]TopicView, error) {
	all, err := e.stories()
	if err != nil {
		return nil, err
	}

	plain := make([]story.Story, len(all))
	for i, s := range all {
		plain[i] = s.Story
	}

	ts := topics.Extract(plain, limit)
	maxWeight := topics.MaxWeight(ts)

	views := make([]TopicView, len(ts))
	for i, t := range ts {
		views[i] = TopicView{Topic: t, Size: topics.SizeClassFor(t.Weight, maxWeight)}
	}
	return views, nil
}
