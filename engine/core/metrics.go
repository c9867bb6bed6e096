package core

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the scheduler's runtime counters. A nil *Metrics is a
// valid no-op receiver so tests can skip instrumentation.
type Metrics struct {
	queueDepth        prometheus.Gauge
	activeTasks       prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	previewsGenerated prometheus.Counter
	savesCompleted    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vetrina",
			Subsystem: "loader",
			Name:      "queue_depth",
			Help:      "Number of load tasks waiting for admission.",
		}),
		activeTasks: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vetrina",
			Subsystem: "loader",
			Name:      "active_tasks",
			Help:      "Number of load tasks currently in flight.",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vetrina",
			Subsystem: "preview_cache",
			Name:      "hits_total",
			Help:      "Preview cache lookups that found an entry.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vetrina",
			Subsystem: "preview_cache",
			Name:      "misses_total",
			Help:      "Preview cache lookups that found nothing.",
		}),
		previewsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vetrina",
			Subsystem: "preview",
			Name:      "generated_total",
			Help:      "Preview images generated across all resolutions.",
		}),
		savesCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vetrina",
			Subsystem: "saver",
			Name:      "completed_total",
			Help:      "Save tasks finished, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.queueDepth,
			m.activeTasks,
			m.cacheHits,
			m.cacheMisses,
			m.previewsGenerated,
			m.savesCompleted,
		)
	}
	return m
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) SetActiveTasks(n int) {
	if m == nil {
		return
	}
	m.activeTasks.Set(float64(n))
}

func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.cacheHits.Inc()
}

func (m *Metrics) IncCacheMiss() {
	if m == nil {
		return
	}
	m.cacheMisses.Inc()
}

func (m *Metrics) IncPreviewGenerated() {
	if m == nil {
		return
	}
	m.previewsGenerated.Inc()
}

func (m *Metrics) IncSaveCompleted(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.savesCompleted.WithLabelValues(result).Inc()
}
