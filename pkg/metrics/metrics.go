package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Bus / service runtime metrics
	EnvelopesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_envelopes_published_total",
			Help: "Total number of envelopes published by topic",
		},
		[]string{"topic"},
	)

	EnvelopesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_envelopes_received_total",
			Help: "Total number of envelopes received by topic",
		},
		[]string{"topic"},
	)

	EnvelopesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_envelopes_dropped_total",
			Help: "Total number of envelopes dropped by reason (expired, malformed, duplicate, max_hops, queue_full)",
		},
		[]string{"reason"},
	)

	ServiceState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alicia_service_state",
			Help: "Current runtime state of the service (1 = in that state, labeled by state name)",
		},
		[]string{"service", "state"},
	)

	// Load balancer metrics
	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alicia_circuit_breaker_state",
			Help: "Circuit breaker state per instance (0=closed, 1=half_open, 2=open)",
		},
		[]string{"service", "instance_id"},
	)

	RoutingDecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_routing_decisions_total",
			Help: "Total number of routing decisions by service and outcome",
		},
		[]string{"service", "outcome"},
	)

	// Device manager metrics
	CommandQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "alicia_command_queue_depth",
			Help: "Current depth of the device command queue by priority lane",
		},
		[]string{"priority"},
	)

	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_commands_total",
			Help: "Total number of device commands by terminal status",
		},
		[]string{"status"},
	)

	// Security gateway metrics
	AuthAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_auth_attempts_total",
			Help: "Total number of device authentication attempts by outcome",
		},
		[]string{"outcome"},
	)

	// Voice pipeline metrics
	TTSJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_tts_jobs_total",
			Help: "Total number of TTS jobs by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	TTSJobDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alicia_tts_job_duration_seconds",
			Help:    "TTS synthesis duration in seconds by engine",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	STTJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_stt_jobs_total",
			Help: "Total number of STT jobs by engine and outcome",
		},
		[]string{"engine", "outcome"},
	)

	AIJobsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_ai_jobs_total",
			Help: "Total number of AI jobs by model and outcome",
		},
		[]string{"model", "outcome"},
	)

	AITokensUsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "alicia_ai_tokens_used_total",
			Help: "Total number of tokens consumed by model",
		},
		[]string{"model"},
	)

	// Health monitor metrics
	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "alicia_probe_duration_seconds",
			Help:    "Health probe duration in seconds by service",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service"},
	)
)

func init() {
	prometheus.MustRegister(
		EnvelopesPublished,
		EnvelopesReceived,
		EnvelopesDropped,
		ServiceState,
		CircuitBreakerState,
		RoutingDecisionsTotal,
		CommandQueueDepth,
		CommandsTotal,
		AuthAttemptsTotal,
		TTSJobsTotal,
		TTSJobDuration,
		STTJobsTotal,
		AIJobsTotal,
		AITokensUsedTotal,
		ProbeDuration,
	)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
