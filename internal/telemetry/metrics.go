// Package telemetry exposes prometheus metrics for the inference pipeline.
package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsPath = "/metrics"

// Metrics holds the pipeline's prometheus collectors. A nil *Metrics is
// valid and turns every method into a no-op, so components can take metrics
// optionally.
type Metrics struct {
	registry          *prometheus.Registry
	predictRequests   prometheus.Counter
	inferenceDuration prometheus.Histogram
	mailboxDepth      prometheus.Gauge
	detectionCounter  *prometheus.CounterVec
	audioLevel        prometheus.Gauge
}

// NewMetrics initializes and registers all pipeline metrics on a private
// registry.
func NewMetrics() (*Metrics, error) {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.predictRequests = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "perch_predict_requests_total",
		Help: "Number of predict requests dispatched to the inference worker.",
	})
	m.inferenceDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "perch_inference_duration_seconds",
		Help:    "Wall clock duration of one predict cycle.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})
	m.mailboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "perch_worker_mailbox_depth",
		Help: "Requests queued in the inference worker mailbox.",
	})
	m.detectionCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "perch_detections_total",
		Help: "Detections emitted, partitioned by common name.",
	}, []string{"name"})
	m.audioLevel = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "perch_audio_level",
		Help: "Scaled 0-100 input audio level.",
	})

	for _, c := range []prometheus.Collector{
		m.predictRequests, m.inferenceDuration, m.mailboxDepth, m.detectionCounter, m.audioLevel,
	} {
		if err := m.registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncPredictRequests counts a dispatched predict request.
func (m *Metrics) IncPredictRequests() {
	if m != nil {
		m.predictRequests.Inc()
	}
}

// ObserveInference records the duration of one predict cycle.
func (m *Metrics) ObserveInference(d time.Duration) {
	if m != nil {
		m.inferenceDuration.Observe(d.Seconds())
	}
}

// SetMailboxDepth publishes the current worker queue depth.
func (m *Metrics) SetMailboxDepth(depth int) {
	if m != nil {
		m.mailboxDepth.Set(float64(depth))
	}
}

// IncDetection counts an emitted detection by common name.
func (m *Metrics) IncDetection(name string) {
	if m != nil {
		m.detectionCounter.WithLabelValues(name).Inc()
	}
}

// SetAudioLevel publishes the current input level.
func (m *Metrics) SetAudioLevel(level int) {
	if m != nil {
		m.audioLevel.Set(float64(level))
	}
}

// Handler returns the scrape handler for the private registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// RegisterHandlers mounts the metrics route on the provided mux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.Handle(metricsPath, m.Handler())
}
