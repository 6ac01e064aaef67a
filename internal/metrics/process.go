package metrics

import (
	"context"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
)

// CollectProcessStats samples the engine's own RSS and CPU usage on
// an interval and publishes them as gauges.
func (r *Recorder) CollectProcessStats(ctx context.Context, interval time.Duration, log *zap.Logger) {
	if r == nil {
		return
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		log.Warn("process stats unavailable", zap.Error(err))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if mem, err := proc.MemoryInfo(); err == nil {
				r.processRSS.Set(float64(mem.RSS))
			}
			if cpu, err := proc.CPUPercent(); err == nil {
				r.processCPU.Set(cpu)
			}
		}
	}
}
