// Package watchdog tracks component liveness through heartbeats and
// flags anything that goes silent past its threshold.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Watchdog struct {
	components    map[string]*componentHealth
	checkInterval time.Duration
	log           *zap.Logger
}

type componentHealth struct {
	name          string
	lastHeartbeat atomic.Int64
	healthy       atomic.Bool
	threshold     time.Duration
}

func New(checkInterval time.Duration, log *zap.Logger) *Watchdog {
	return &Watchdog{
		components:    make(map[string]*componentHealth),
		checkInterval: checkInterval,
		log:           log,
	}
}

// Register adds a component before Run starts; not safe to call
// concurrently with Run.
func (w *Watchdog) Register(name string, threshold time.Duration) func() {
	comp := &componentHealth{name: name, threshold: threshold}
	comp.healthy.Store(true)
	w.components[name] = comp
	return func() { w.Heartbeat(name) }
}

func (w *Watchdog) Heartbeat(name string) {
	if comp, ok := w.components[name]; ok {
		comp.lastHeartbeat.Store(time.Now().UnixNano())
		comp.healthy.Store(true)
	}
}

func (w *Watchdog) Run(ctx context.Context) {
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.checkAll()
		}
	}
}

func (w *Watchdog) checkAll() {
	now := time.Now().UnixNano()

	for name, comp := range w.components {
		lastBeat := comp.lastHeartbeat.Load()
		if lastBeat == 0 {
			continue
		}

		elapsed := time.Duration(now - lastBeat)
		if elapsed > comp.threshold {
			if comp.healthy.CompareAndSwap(true, false) {
				w.log.Error("component unhealthy",
					zap.String("component", name),
					zap.Duration("silent_for", elapsed))
			}
		}
	}
}

func (w *Watchdog) IsHealthy(name string) bool {
	if comp, ok := w.components[name]; ok {
		return comp.healthy.Load()
	}
	return false
}

func (w *Watchdog) Status() map[string]bool {
	status := make(map[string]bool, len(w.components))
	for name, comp := range w.components {
		status[name] = comp.healthy.Load()
	}
	return status
}
