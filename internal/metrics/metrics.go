package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 进程内指标，使用独立的 Registry 便于测试
type Metrics struct {
	Registry      *prometheus.Registry
	stageDuration *prometheus.HistogramVec
	requests      *prometheus.CounterVec
	audioBytes    prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docscribe",
			Name:      "stage_duration_seconds",
			Help:      "Duration of each pipeline stage.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 80, 160},
		}, []string{"stage"}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docscribe",
			Name:      "requests_total",
			Help:      "Pipeline runs by outcome.",
		}, []string{"outcome"}),
		audioBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "docscribe",
			Name:      "audio_bytes",
			Help:      "Size of uploaded audio.",
			Buckets:   prometheus.ExponentialBuckets(64*1024, 2, 10),
		}),
	}
	reg.MustRegister(
		m.stageDuration,
		m.requests,
		m.audioBytes,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) RecordOutcome(outcome string) {
	m.requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAudioSize(n int) {
	m.audioBytes.Observe(float64(n))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
