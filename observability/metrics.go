package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Screen run metrics
	ScreenRunsTotal   *prometheus.CounterVec
	ScreenRunDuration *prometheus.HistogramVec
	ScreenRowsTotal   *prometheus.CounterVec
	RowErrorsTotal    *prometheus.CounterVec

	// Evaluation metrics
	EvaluationsTotal *prometheus.CounterVec
	VerdictRatings   *prometheus.CounterVec
	VerdictScores    *prometheus.HistogramVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// scoreBuckets are histogram buckets for verdict scores. The additive model
// tops out in the mid-teens and the stacked extrinsic penalty can pull a
// score a few points negative.
var scoreBuckets = []float64{-5, -3, -1, 0, 2, 4, 6, 8, 10, 12, 14, 16}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		// Screen run metrics
		ScreenRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "screen",
				Name:      "runs_total",
				Help:      "Total number of screen runs",
			},
			[]string{"source", "status"},
		),
		ScreenRunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "screen",
				Name:      "run_duration_seconds",
				Help:      "Duration of screen runs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"source"},
		),
		ScreenRowsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "screen",
				Name:      "rows_total",
				Help:      "Total number of input rows processed",
			},
			[]string{"source"},
		),
		RowErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "screen",
				Name:      "row_errors_total",
				Help:      "Total number of rows rejected during normalization or evaluation",
			},
			[]string{"field"},
		),

		// Evaluation metrics
		EvaluationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "evaluation",
				Name:      "total",
				Help:      "Total number of contract evaluations",
			},
			[]string{"option_type"},
		),
		VerdictRatings: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "evaluation",
				Name:      "ratings_total",
				Help:      "Total number of verdicts by rating",
			},
			[]string{"rating"},
		),
		VerdictScores: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "evaluation",
				Name:      "score",
				Help:      "Distribution of verdict scores",
				Buckets:   scoreBuckets,
			},
			[]string{"option_type"},
		),

		// External API metrics
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		// Database metrics
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		// HTTP metrics
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "option_scout",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   prometheus.ExponentialBuckets(100, 10, 6),
			},
			[]string{"method", "path"},
		),

		// Circuit breaker metrics
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "option_scout",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "option_scout",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		return InitMetrics()
	}
	return globalMetrics
}

// RecordScreenRun records a finished screen run
func (m *Metrics) RecordScreenRun(source, status string, duration time.Duration) {
	m.ScreenRunsTotal.WithLabelValues(source, status).Inc()
	m.ScreenRunDuration.WithLabelValues(source).Observe(duration.Seconds())
}

// RecordScreenRows records the rows processed by a run
func (m *Metrics) RecordScreenRows(source string, rows int) {
	m.ScreenRowsTotal.WithLabelValues(source).Add(float64(rows))
}

// RecordRowError records a rejected input row
func (m *Metrics) RecordRowError(field string) {
	m.RowErrorsTotal.WithLabelValues(field).Inc()
}

// RecordVerdict records one evaluation outcome
func (m *Metrics) RecordVerdict(optionType, rating string, score int) {
	m.EvaluationsTotal.WithLabelValues(optionType).Inc()
	m.VerdictRatings.WithLabelValues(rating).Inc()
	m.VerdictScores.WithLabelValues(optionType).Observe(float64(score))
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the current state of a circuit breaker
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveScreenRun records the run duration and status
func (t *Timer) ObserveScreenRun(source, status string) {
	t.metrics.RecordScreenRun(source, status, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
