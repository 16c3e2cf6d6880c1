// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Feedback outcomes.
const (
	FeedbackApplied   = "applied"
	FeedbackDuplicate = "duplicate"
	FeedbackNotFound  = "not_found"
)

var (
	// Detections counts analyses by verdict.
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_detections_total",
		Help: "Total number of evidence bundles analyzed, by verdict",
	}, []string{"verdict"})

	// Probability observes final probabilities of AI generation.
	Probability = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "verity_detection_probability",
		Help:    "Distribution of final AI probabilities",
		Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
	})

	// Overrides counts fired policy overrides by kind.
	Overrides = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_overrides_total",
		Help: "Total number of decision overrides applied, by kind",
	}, []string{"kind"})

	// Feedback counts feedback submissions by outcome.
	Feedback = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_feedback_total",
		Help: "Total number of feedback submissions, by outcome",
	}, []string{"outcome"})

	// EstimatorRequests counts external estimator calls by result.
	EstimatorRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_estimator_requests_total",
		Help: "Total number of external estimator requests, by result",
	}, []string{"estimator", "result"})

	// HTTPRequests counts API requests by method, route pattern, and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_http_requests_total",
		Help: "Total number of API requests, by method, route, and status",
	}, []string{"method", "route", "status"})

	// HTTPDuration observes API request latency in seconds.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "verity_http_request_duration_seconds",
		Help:    "API request latency in seconds, by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CircuitBreakerState is the external estimator breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "verity_circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	// CircuitBreakerTransitions counts breaker state changes.
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "verity_circuit_breaker_transitions_total",
		Help: "Total number of circuit breaker state transitions",
	}, []string{"name", "from", "to"})
)

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDetection records one analysis outcome.
func ObserveDetection(verdict string, probability float64, overrides []string) {
	Detections.WithLabelValues(verdict).Inc()
	Probability.Observe(probability)
	for _, kind := range overrides {
		Overrides.WithLabelValues(kind).Inc()
	}
}

// HTTP records API request observations. It satisfies
// middleware.RequestObserver.
type HTTP struct{}

// ObserveRequest records one completed request. Unmatched requests share the
// "unmatched" route label to keep cardinality bounded.
func (HTTP) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
