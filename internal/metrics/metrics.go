package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "queue_broker"

var (
	requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Count of dispatched requests by operation and response status.",
		},
		[]string{"op", "status"},
	)
	messagesEnqueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_enqueued_total",
			Help:      "Count of messages added to any queue.",
		},
	)
	messagesDequeued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dequeued_total",
			Help:      "Count of non-empty messages retrieved from any queue.",
		},
	)
	queuesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queues",
			Help:      "Number of queues currently registered.",
		},
	)
	connectionErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_errors_total",
			Help:      "Count of connections dropped or answered with 400, by connection state.",
		},
		[]string{"state"},
	)
	activeConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of connections currently being served.",
		},
	)
	connectionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "connection_duration_seconds",
			Help:      "Time from accept to close of a connection.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
	)
)

var registerMetrics sync.Once

// Register all metrics with the default prometheus registerer.
func Register() {
	registerMetrics.Do(func() {
		prometheus.MustRegister(
			requestCounter,
			messagesEnqueued,
			messagesDequeued,
			queuesGauge,
			connectionErrors,
			activeConnections,
			connectionDuration,
		)
	})
}

// Handler serves the registered metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

func RecordRequest(op string, status int) {
	requestCounter.WithLabelValues(op, strconv.Itoa(status)).Inc()
}

func RecordEnqueue() {
	messagesEnqueued.Inc()
}

func RecordDequeue() {
	messagesDequeued.Inc()
}

func SetQueues(n int) {
	queuesGauge.Set(float64(n))
}

func RecordConnectionError(state string) {
	connectionErrors.WithLabelValues(state).Inc()
}

// TrackConnection marks a connection as active and returns the func that ends
// it.
func TrackConnection() func() {
	start := time.Now()
	activeConnections.Inc()
	return func() {
		activeConnections.Dec()
		connectionDuration.Observe(time.Since(start).Seconds())
	}
}

// Snapshot accessors, mainly for tests and debug logging.

func RequestCount(op string, status int) float64 {
	return counterValue(requestCounter.WithLabelValues(op, strconv.Itoa(status)))
}

func ConnectionErrorCount(state string) float64 {
	return counterValue(connectionErrors.WithLabelValues(state))
}

func EnqueuedCount() float64 {
	return counterValue(messagesEnqueued)
}

func DequeuedCount() float64 {
	return counterValue(messagesDequeued)
}
