// Package metrics provides Prometheus metrics for the viewer loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "depthview"

// Skip reasons recorded on frames_skipped_total.
const (
	ReasonReadError    = "read_error"
	ReasonInvalidFrame = "invalid_frame"
	ReasonEndOfStream  = "end_of_stream"
)

// Metrics holds the collectors updated by the viewer loop.
type Metrics struct {
	registry *prometheus.Registry

	framesProcessed prometheus.Counter
	framesSkipped   *prometheus.CounterVec
	trackingStarts  prometheus.Counter
	visibleUsers    prometheus.Gauge
	validPoints     prometheus.Gauge
	frameDuration   prometheus.Histogram
	framesRecorded  prometheus.Counter
}

// New creates the collectors on a private registry that also carries the
// Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		framesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_processed_total",
			Help:      "Frames read from the tracker and composed.",
		}),
		framesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_skipped_total",
			Help:      "Frames whose user and depth processing was skipped.",
		}, []string{"reason"}),
		trackingStarts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "skeleton_tracking_starts_total",
			Help:      "Skeleton tracking requests accepted by the tracker.",
		}),
		visibleUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "visible_users",
			Help:      "User slots currently marked visible.",
		}),
		validPoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "depth_valid_points",
			Help:      "Valid depth samples in the last frame.",
		}),
		frameDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_duration_seconds",
			Help:      "Time spent in one update and draw cycle.",
			Buckets:   []float64{.001, .0025, .005, .01, .02, .033, .05, .1, .25},
		}),
		framesRecorded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_recorded_total",
			Help:      "Frames written to the session store.",
		}),
	}

	reg.MustRegister(
		m.framesProcessed,
		m.framesSkipped,
		m.trackingStarts,
		m.visibleUsers,
		m.validPoints,
		m.frameDuration,
		m.framesRecorded,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry to expose over HTTP.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// FrameProcessed records a composed frame.
func (m *Metrics) FrameProcessed(points int, visible int, d time.Duration) {
	m.framesProcessed.Inc()
	m.validPoints.Set(float64(points))
	m.visibleUsers.Set(float64(visible))
	m.frameDuration.Observe(d.Seconds())
}

// FrameSkipped records a frame dropped for the given reason.
func (m *Metrics) FrameSkipped(reason string) {
	m.framesSkipped.WithLabelValues(reason).Inc()
}

// TrackingStarted records skeleton tracking requests.
func (m *Metrics) TrackingStarted(n int) {
	m.trackingStarts.Add(float64(n))
}

// FrameRecorded records a frame written to the store.
func (m *Metrics) FrameRecorded() {
	m.framesRecorded.Inc()
}
