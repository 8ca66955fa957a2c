package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Compositor metrics
var (
	CompositorTicksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_ticks_total",
			Help: "Total number of compositor ticks",
		},
		[]string{"pump"}, // "foreground", "background", "kick"
	)

	CompositorDrawFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_compositor_draw_failures_total",
			Help: "Per-frame draw failures that were caught and skipped",
		},
	)

	CrossfadesStartedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_compositor_crossfades_started_total",
			Help: "Total number of source crossfades started",
		},
	)

	CrossfadesCompletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_compositor_crossfades_completed_total",
			Help: "Total number of source crossfades that reached full blend",
		},
	)
)

// Complexity controller metrics
var (
	ComplexityOverall = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_compositor_complexity_overall",
			Help: "Most recent smoothed overall complexity score [0,1]",
		},
	)

	ComplexityInjectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_complexity_injections_total",
			Help: "Total number of complexity injections applied",
		},
		[]string{"type"}, // "noise", "movement", "dithering"
	)

	ComplexityInjectionIntensity = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_compositor_complexity_injection_intensity",
			Help:    "Intensity of applied complexity injections",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.15, 0.2, 0.3, 0.5},
		},
	)
)

// Scheduler metrics
var (
	PumpSwitchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_pump_switches_total",
			Help: "Pump activations by kind",
		},
		[]string{"pump"}, // "foreground", "background"
	)

	RecoveryKicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "stream_compositor_recovery_kicks_total",
			Help: "Manual frame kicks issued after returning to visibility",
		},
	)
)

// Validator metrics
var (
	ValidationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_validations_total",
			Help: "Stream stability validation outcomes",
		},
		[]string{"outcome"}, // "stable", "timeout", "aborted", "rejected"
	)

	ValidationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "stream_compositor_validation_duration_seconds",
			Help:    "Time spent validating stream stability",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 3, 5},
		},
	)
)

// Encoder metrics
var (
	FramesEncodedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_frames_encoded_total",
			Help: "Frames encoded for delivery, by encoder backend",
		},
		[]string{"backend", "status"}, // backend: "vips", "fallback"
	)
)

// Diagnostics store metrics
var (
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_store_queries_total",
			Help: "Diagnostics store queries by operation and status",
		},
		[]string{"operation", "status"},
	)

	StoreQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stream_compositor_store_query_duration_seconds",
			Help:    "Diagnostics store query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"operation"},
	)
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stream_compositor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "stream_compositor_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_compositor_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	StreamClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "stream_compositor_stream_clients_connected",
			Help: "Clients currently attached to the MJPEG stream endpoint",
		},
	)
)
