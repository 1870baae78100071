package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TasksReceivedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtrpc_tasks_received_total",
			Help: "Total number of tasks accepted by the manager, by exchange and routing key",
		},
		[]string{"exchange", "routing_key"},
	)

	TasksCompletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtrpc_tasks_completed_total",
			Help: "Total number of tasks completed, by outcome",
		},
		[]string{"outcome"},
	)

	TaskLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mtrpc_task_duration_seconds",
			Help:    "Time from task acceptance to result publish, in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	ResponderQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtrpc_responder_queue_depth",
			Help: "Current number of results buffered in the responder's FIFO",
		},
	)

	InFlightTasks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mtrpc_in_flight_tasks",
			Help: "Current number of tasks accepted but not yet resolved",
		},
	)

	AMQPReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mtrpc_amqp_reconnects_total",
			Help: "Total number of AMQP reconnect attempts, by connection role and outcome",
		},
		[]string{"role", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(TasksReceivedTotal)
	prometheus.MustRegister(TasksCompletedTotal)
	prometheus.MustRegister(TaskLatency)
	prometheus.MustRegister(ResponderQueueDepth)
	prometheus.MustRegister(InFlightTasks)
	prometheus.MustRegister(AMQPReconnectsTotal)
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

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	duration := time.Since(t.start).Seconds()
	histogram.WithLabelValues(labels...).Observe(duration)
}

// Duration returns the elapsed time since timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
