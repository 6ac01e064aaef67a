// Package sweep bounds memory: a periodic pass prunes stale window
// and strike entries and fires due timed tasks.
package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"go-sentinel/internal/clock"
	"go-sentinel/internal/config"
	"go-sentinel/internal/event"
	"go-sentinel/internal/metrics"
	"go-sentinel/internal/strikes"
	"go-sentinel/internal/window"
)

type Scheduler struct {
	interval time.Duration
	clock    clock.Clock
	profiles *config.ProfileStore
	windows  *window.Counter
	ledger   *strikes.Ledger
	tasks    *TaskTable
	metrics  *metrics.Recorder
	log      *zap.Logger

	heartbeat func()
}

func NewScheduler(
	interval time.Duration,
	clk clock.Clock,
	profiles *config.ProfileStore,
	windows *window.Counter,
	ledger *strikes.Ledger,
	tasks *TaskTable,
	rec *metrics.Recorder,
	log *zap.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Scheduler{
		interval:  interval,
		clock:     clk,
		profiles:  profiles,
		windows:   windows,
		ledger:    ledger,
		tasks:     tasks,
		metrics:   rec,
		log:       log,
		heartbeat: func() {},
	}
}

func (s *Scheduler) SetHeartbeat(fn func()) {
	if fn != nil {
		s.heartbeat = fn
	}
}

// Run loops until ctx is cancelled. Each pass locks one shard at a
// time, so concurrent record/add calls keep making progress.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Timed tasks fire on a much tighter cadence than the prune pass.
	taskTicker := time.NewTicker(time.Second)
	defer taskTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-taskTicker.C:
			if s.tasks != nil {
				s.tasks.RunDue(ctx, s.clock.Now())
			}
		case <-ticker.C:
			s.sweepOnce()
		}
	}
}

// SweepOnce is exported for tests and for the status command's
// manual trigger.
func (s *Scheduler) SweepOnce() {
	s.sweepOnce()
}

func (s *Scheduler) sweepOnce() {
	defer s.heartbeat()
	now := s.clock.Now()

	removedWindows := s.windows.Sweep(func(action event.ActionType) time.Time {
		return now.Add(-s.profiles.LongestWindow(action))
	})

	removedStrikes := s.ledger.Sweep(func(guildID string) time.Duration {
		return s.profiles.Get(guildID).EffectiveStrikeExpiry()
	}, now)

	s.metrics.SweepRemoved(removedWindows + removedStrikes)
	if removedWindows+removedStrikes > 0 {
		s.log.Debug("sweep pass complete",
			zap.Int("windows_removed", removedWindows),
			zap.Int("strikes_removed", removedStrikes),
			zap.Int("tracked_windows", s.windows.TrackedKeys()),
			zap.Int("tracked_ledgers", s.ledger.TrackedActors()))
	}
}
