// Package metrics provides the Prometheus collectors the execution
// service, sandbox supervisor, dependency analyzer, and toolchain caches
// populate.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once     sync.Once
	instance *Metrics
)

// Metrics holds every collector this service registers.
type Metrics struct {
	ExecutionsTotal     *prometheus.CounterVec
	ExecutionDuration   *prometheus.HistogramVec
	ExecutionsInFlight  prometheus.Gauge
	AdmissionQueueDepth prometheus.Gauge
	StageDuration       *prometheus.HistogramVec
	ResourceCapExceeded *prometheus.CounterVec
	AnalyzerDetections  *prometheus.CounterVec
	ToolchainCacheHits  *prometheus.CounterVec
}

// Get returns the process-wide Metrics, registering its collectors with
// the default Prometheus registry on first call.
func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			ExecutionsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "codesandbox",
				Name:      "executions_total",
				Help:      "Total number of execution requests by language and terminal status.",
			}, []string{"language", "status"}),

			ExecutionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "codesandbox",
				Name:      "execution_duration_seconds",
				Help:      "Wall-clock duration of a full execution request, from admission to result.",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			}, []string{"language"}),

			ExecutionsInFlight: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "codesandbox",
				Name:      "executions_in_flight",
				Help:      "Number of requests currently holding an admission permit.",
			}),

			AdmissionQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Namespace: "codesandbox",
				Name:      "admission_queue_depth",
				Help:      "Number of requests waiting for an admission permit.",
			}),

			StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "codesandbox",
				Name:      "pipeline_stage_duration_seconds",
				Help:      "Duration of one language pipeline stage.",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 30},
			}, []string{"language", "stage"}),

			ResourceCapExceeded: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "codesandbox",
				Name:      "resource_cap_exceeded_total",
				Help:      "Executions terminated for exceeding a resource cap, by cap kind.",
			}, []string{"cap"}),

			AnalyzerDetections: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "codesandbox",
				Name:      "analyzer_detections_total",
				Help:      "Dependency Analyzer language classifications, including failures.",
			}, []string{"language"}),

			ToolchainCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "codesandbox",
				Name:      "toolchain_cache_requests_total",
				Help:      "Toolchain availability lookups, split by local/shared cache hit or miss.",
			}, []string{"result"}),
		}
	})
	return instance
}

// StageTimer returns a func to call when the stage completes, recording
// its duration. Usage: defer m.StageTimer(lang, "compile")().
func (m *Metrics) StageTimer(language, stage string) func() {
	timer := prometheus.NewTimer(m.StageDuration.WithLabelValues(language, stage))
	return func() { timer.ObserveDuration() }
}
