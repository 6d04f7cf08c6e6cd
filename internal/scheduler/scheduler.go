package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/elonfeng/newspulse/internal/logging"
	"github.com/elonfeng/newspulse/pkg/alert"
	"github.com/elonfeng/newspulse/pkg/feed"
	"github.com/elonfeng/newspulse/pkg/hotness"
)

// alertMemory is how long an alerted story is remembered.
const alertMemory = 48 * time.Hour

// Scheduler runs periodic refreshes and alerts on hot stories.
type Scheduler struct {
	engine     *feed.Engine
	alertMgr   *alert.Manager
	refreshInt time.Duration
	alertInt   time.Duration
	minLevel   hotness.Level
	now        func() time.Time
	log        *log.Logger

	alerted map[string]time.Time
}

// New creates a new scheduler. Stories at or above minLevel are alerted once.
func New(
	engine *feed.Engine,
	alertMgr *alert.Manager,
	refreshInt, alertInt time.Duration,
	minLevel hotness.Level,
) *Scheduler {
	if refreshInt == 0 {
		refreshInt = 10 * time.Minute
	}
	if alertInt == 0 {
		alertInt = 10 * time.Minute
	}
	if minLevel == "" {
		minLevel = hotness.LevelFire
	}
	return &Scheduler{
		engine:     engine,
		alertMgr:   alertMgr,
		refreshInt: refreshInt,
		alertInt:   alertInt,
		minLevel:   minLevel,
		now:        time.Now,
		log:        logging.WithPrefix("scheduler"),
		alerted:    make(map[string]time.Time),
	}
}

// Run starts the scheduler loop. Blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	refreshTicker := time.NewTicker(s.refreshInt)
	alertTicker := time.NewTicker(s.alertInt)
	defer refreshTicker.Stop()
	defer alertTicker.Stop()

	// Run immediately on start.
	s.log.Info("initial refresh")
	s.refresh(ctx)
	s.alertHot(ctx)

	s.log.Info("running", "refresh", s.refreshInt, "alerts", s.alertInt, "min_level", s.minLevel)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("stopped")
			return ctx.Err()
		case <-refreshTicker.C:
			s.refresh(ctx)
		case <-alertTicker.C:
			s.alertHot(ctx)
		}
	}
}

func (s *Scheduler) refresh(ctx context.Context) {
	snap, err := s.engine.Refresh(ctx)
	if err != nil {
		s.log.Error("refresh failed", "err", err)
		return
	}
	for src, msg := range snap.Errors {
		s.log.Warn("source error", "source", src, "err", msg)
	}
	s.log.Debug("refreshed", "stories", len(snap.Stories))
}

// alertHot broadcasts every story at or above the alert level that has not
// been alerted yet. It returns how many alerts went out.
func (s *Scheduler) alertHot(ctx context.Context) int {
	if !s.alertMgr.HasNotifiers() {
		return 0
	}
	snap := s.engine.Snapshot()
	if snap == nil {
		return 0
	}

	now := s.now()
	for id, at := range s.alerted {
		if now.Sub(at) > alertMemory {
			delete(s.alerted, id)
		}
	}

	sent := 0
	for _, st := range snap.Stories {
		if st.Hotness == nil || st.Hotness.Level.Rank() < s.minLevel.Rank() {
			continue
		}
		if _, done := s.alerted[st.ID]; done {
			continue
		}

		if err := s.alertMgr.Broadcast(ctx, alert.NewNotification(st)); err != nil {
			s.log.Error("alert failed", "id", st.ID, "err", err)
			continue
		}

		s.alerted[st.ID] = now
		sent++
		s.log.Info("alerted", "id", st.ID, "title", st.Title, "score", st.Hotness.Score)
	}
	return sent
}
