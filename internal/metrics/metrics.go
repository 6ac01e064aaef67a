// Package metrics exposes engine counters over Prometheus.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Recorder owns the engine's Prometheus collectors. A nil Recorder is
// safe to call everywhere so tests can pass nil.
type Recorder struct {
	registry *prometheus.Registry

	events           *prometheus.CounterVec
	detections       *prometheus.CounterVec
	exemptDetections prometheus.Counter
	sanctions        *prometheus.CounterVec
	attributionMiss  prometheus.Counter
	attributionTime  prometheus.Histogram
	sweepRemoved     prometheus.Counter

	processRSS prometheus.Gauge
	processCPU prometheus.Gauge
}

func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.events = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_events_total",
		Help: "Administrative action events processed, by action type.",
	}, []string{"action"})

	r.detections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_detections_total",
		Help: "Threshold breaches detected, by action type.",
	}, []string{"action"})

	r.exemptDetections = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_exempt_detections_total",
		Help: "Detections suppressed because the actor was exempt.",
	})

	r.sanctions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sentinel_sanctions_total",
		Help: "Sanction outcomes, by attempted kind and result.",
	}, []string{"kind", "result"})

	r.attributionMiss = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_attribution_failures_total",
		Help: "Events dropped because no actor could be attributed.",
	})

	r.attributionTime = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "sentinel_attribution_seconds",
		Help:    "Latency of audit-log attribution lookups.",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	r.sweepRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "sentinel_sweep_removed_total",
		Help: "Window and strike entries removed by the cleanup sweep.",
	})

	r.processRSS = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_process_rss_bytes",
		Help: "Resident set size of the engine process.",
	})

	r.processCPU = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "sentinel_process_cpu_percent",
		Help: "CPU usage of the engine process.",
	})

	r.registry.MustRegister(
		r.events, r.detections, r.exemptDetections, r.sanctions,
		r.attributionMiss, r.attributionTime, r.sweepRemoved,
		r.processRSS, r.processCPU,
	)
	return r
}

func (r *Recorder) Event(action string) {
	if r != nil {
		r.events.WithLabelValues(action).Inc()
	}
}

func (r *Recorder) Detection(action string) {
	if r != nil {
		r.detections.WithLabelValues(action).Inc()
	}
}

func (r *Recorder) ExemptDetection() {
	if r != nil {
		r.exemptDetections.Inc()
	}
}

func (r *Recorder) Sanction(kind, result string) {
	if r != nil {
		r.sanctions.WithLabelValues(kind, result).Inc()
	}
}

func (r *Recorder) AttributionFailure() {
	if r != nil {
		r.attributionMiss.Inc()
	}
}

func (r *Recorder) AttributionLatency(d time.Duration) {
	if r != nil {
		r.attributionTime.Observe(d.Seconds())
	}
}

func (r *Recorder) SweepRemoved(n int) {
	if r != nil && n > 0 {
		r.sweepRemoved.Add(float64(n))
	}
}

// Serve runs the /metrics endpoint until ctx is cancelled.
func (r *Recorder) Serve(ctx context.Context, addr string, log *zap.Logger) {
	if r == nil {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics listener started", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Warn("metrics listener stopped", zap.Error(err))
	}
}
