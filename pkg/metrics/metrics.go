package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ServicesTotal tracks registered services by state.
	ServicesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harness_services_total",
			Help: "Total number of registered services by state",
		},
		[]string{"state"},
	)

	// TasksTotal tracks registered tasks by state.
	TasksTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harness_tasks_total",
			Help: "Total number of registered tasks by state",
		},
		[]string{"state"},
	)

	// SubscribersTotal tracks active registry event subscribers.
	SubscribersTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "harness_subscribers_total",
			Help: "Total number of active registry event subscribers",
		},
	)

	// APIRequestsTotal counts daemon API requests by action and outcome.
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_api_requests_total",
			Help: "Total number of daemon API requests by action and status",
		},
		[]string{"action", "status"},
	)

	// APIRequestDuration records daemon API request latency.
	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_api_request_duration_seconds",
			Help:    "Daemon API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// SchedulerLayerDuration records how long one scheduler layer took to settle.
	SchedulerLayerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_scheduler_layer_duration_seconds",
			Help:    "Time taken for one topological layer to settle",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"direction"},
	)

	// SchedulerRunsTotal counts scheduler start/stop runs by outcome.
	SchedulerRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_scheduler_runs_total",
			Help: "Total number of scheduler runs by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)

	// HealthCheckDuration records probe execution latency.
	HealthCheckDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "harness_health_check_duration_seconds",
			Help:    "Health probe execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"check_type"},
	)

	// HealthTransitionsTotal counts public health status transitions.
	HealthTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "harness_health_transitions_total",
			Help: "Total number of public health status transitions",
		},
		[]string{"from", "to"},
	)

	// IPAllocationsTotal tracks IP allocator usage.
	IPAllocationsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "harness_ip_allocations_total",
			Help: "Total number of active IP allocations by topology",
		},
		[]string{"topology"},
	)
)

func init() {
	prometheus.MustRegister(ServicesTotal)
	prometheus.MustRegister(TasksTotal)
	prometheus.MustRegister(SubscribersTotal)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
	prometheus.MustRegister(SchedulerLayerDuration)
	prometheus.MustRegister(SchedulerRunsTotal)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(HealthTransitionsTotal)
	prometheus.MustRegister(IPAllocationsTotal)
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
	duration := time.Since(t.start).Seconds()
	histogram.Observe(duration)
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
