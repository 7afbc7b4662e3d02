package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Capture pipeline counters
	FramesCaptured  atomic.Uint64
	CaptureFailures atomic.Uint64

	// Processing counters
	FramesProcessed   atomic.Uint64
	ProcessorFailures atomic.Uint64

	// Emission counters
	FramesSent     atomic.Uint64
	RepCountsSent  atomic.Uint64
	EncodeFailures atomic.Uint64
	EmitFailures   atomic.Uint64

	// Session tracking
	ActiveSessions   atomic.Uint64
	TotalSessions    atomic.Uint64
	RejectedStarts   atomic.Uint64
	SessionsClosed   atomic.Uint64
	LastRepCount     atomic.Uint64
	IterationLatency atomic.Uint64 // last iteration latency in ms

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}
	m.registerPrometheusMetrics()
	return m
}

func (m *Metrics) registerPrometheusMetrics() {
	gauges := []struct {
		name string
		help string
		load func() uint64
	}{
		{"repstream_frames_captured_total", "Total frames read from the capture device", m.FramesCaptured.Load},
		{"repstream_capture_failures_total", "Total capture read failures", m.CaptureFailures.Load},
		{"repstream_frames_processed_total", "Total frames run through the pose processor", m.FramesProcessed.Load},
		{"repstream_processor_failures_total", "Total pose processor failures", m.ProcessorFailures.Load},
		{"repstream_frames_sent_total", "Total video-frame events emitted", m.FramesSent.Load},
		{"repstream_rep_counts_sent_total", "Total rep-count events emitted", m.RepCountsSent.Load},
		{"repstream_encode_failures_total", "Total JPEG encode failures", m.EncodeFailures.Load},
		{"repstream_emit_failures_total", "Total event emission failures", m.EmitFailures.Load},
		{"repstream_active_sessions", "Number of connected client sessions", m.ActiveSessions.Load},
		{"repstream_total_sessions", "Total client sessions since start", m.TotalSessions.Load},
		{"repstream_rejected_starts_total", "Stream starts rejected while another session was streaming", m.RejectedStarts.Load},
		{"repstream_sessions_closed_total", "Total sessions torn down", m.SessionsClosed.Load},
		{"repstream_last_rep_count", "Last rep count relayed to a client", m.LastRepCount.Load},
		{"repstream_iteration_latency_ms", "Latency of the last stream iteration in milliseconds", m.IterationLatency.Load},
	}

	for _, g := range gauges {
		load := g.load
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: g.name, Help: g.help},
			func() float64 { return float64(load()) },
		))
	}
}

// Handler returns the Prometheus HTTP handler
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartServer starts the metrics HTTP server
func (m *Metrics) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return http.ListenAndServe(addr, mux)
}
