package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Pipeline metrics
	PipelineRunsTotal   *prometheus.CounterVec
	PipelineDuration    *prometheus.HistogramVec
	PipelineErrorsTotal *prometheus.CounterVec
	DecisionActions     *prometheus.CounterVec
	DecisionConfidence  *prometheus.HistogramVec

	// Persona stage metrics
	PersonaDuration    *prometheus.HistogramVec
	PersonaErrorsTotal *prometheus.CounterVec
	PersonaScoreRatio  *prometheus.HistogramVec
	PersonaSignals     *prometheus.CounterVec

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// State store metrics
	StateStoreOpsTotal    *prometheus.CounterVec
	StateStoreOpDuration  *prometheus.HistogramVec
	StateStoreErrorsTotal *prometheus.CounterVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics (state store service)
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// ratioBuckets are histogram buckets for score-ratio metrics (0 to 1)
var ratioBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1}

// confidenceBuckets are histogram buckets for confidence metrics (0 to 100)
var confidenceBuckets = []float64{0, 10, 20, 30, 40, 50, 60, 70, 80, 90, 100}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		PipelineRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "pipeline",
				Name:      "runs_total",
				Help:      "Total number of per-ticker pipeline runs",
			},
			[]string{"ticker"},
		),
		PipelineDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "pipeline",
				Name:      "duration_seconds",
				Help:      "Duration of per-ticker pipeline runs in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"ticker", "status"},
		),
		PipelineErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "pipeline",
				Name:      "errors_total",
				Help:      "Total number of pipeline errors",
			},
			[]string{"ticker", "error_type"},
		),
		DecisionActions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "decision",
				Name:      "actions_total",
				Help:      "Total number of portfolio decisions by action",
			},
			[]string{"action"},
		),
		DecisionConfidence: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "decision",
				Name:      "confidence",
				Help:      "Distribution of decision confidence levels",
				Buckets:   confidenceBuckets,
			},
			[]string{"action"},
		),

		PersonaDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "persona",
				Name:      "duration_seconds",
				Help:      "Duration of persona stage executions in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"persona"},
		),
		PersonaErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "persona",
				Name:      "errors_total",
				Help:      "Total number of persona stage errors",
			},
			[]string{"persona", "error_type"},
		),
		PersonaScoreRatio: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "persona",
				Name:      "score_ratio",
				Help:      "Distribution of persona score/max_score ratios",
				Buckets:   ratioBuckets,
			},
			[]string{"persona"},
		),
		PersonaSignals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "persona",
				Name:      "signals_total",
				Help:      "Total number of persona signals by classification",
			},
			[]string{"persona", "signal"},
		),

		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),

		StateStoreOpsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "state_store",
				Name:      "ops_total",
				Help:      "Total number of state store operations",
			},
			[]string{"op"},
		),
		StateStoreOpDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "state_store",
				Name:      "op_duration_seconds",
				Help:      "Duration of state store operations in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"op"},
		),
		StateStoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "state_store",
				Name:      "errors_total",
				Help:      "Total number of state store errors",
			},
			[]string{"op"},
		),

		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "database",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),

		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "hedge_machine",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "hedge_machine",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Current state of circuit breakers (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "hedge_machine",
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

// RecordPipelineRun records a per-ticker pipeline run
func (m *Metrics) RecordPipelineRun(ticker string) {
	m.PipelineRunsTotal.WithLabelValues(ticker).Inc()
}

// RecordPipelineDuration records the duration of a per-ticker pipeline run
func (m *Metrics) RecordPipelineDuration(ticker, status string, duration time.Duration) {
	m.PipelineDuration.WithLabelValues(ticker, status).Observe(duration.Seconds())
}

// RecordPipelineError records a pipeline error
func (m *Metrics) RecordPipelineError(ticker, errorType string) {
	m.PipelineErrorsTotal.WithLabelValues(ticker, errorType).Inc()
}

// RecordDecision records a final portfolio decision
func (m *Metrics) RecordDecision(action string, confidence float64) {
	m.DecisionActions.WithLabelValues(action).Inc()
	m.DecisionConfidence.WithLabelValues(action).Observe(confidence)
}

// RecordPersonaDuration records the duration of a persona stage execution
func (m *Metrics) RecordPersonaDuration(persona string, duration time.Duration) {
	m.PersonaDuration.WithLabelValues(persona).Observe(duration.Seconds())
}

// RecordPersonaError records a persona stage error
func (m *Metrics) RecordPersonaError(persona, errorType string) {
	m.PersonaErrorsTotal.WithLabelValues(persona, errorType).Inc()
}

// RecordPersonaSignal records a persona's classified signal and score ratio
func (m *Metrics) RecordPersonaSignal(persona, signal string, ratio float64) {
	m.PersonaSignals.WithLabelValues(persona, signal).Inc()
	m.PersonaScoreRatio.WithLabelValues(persona).Observe(ratio)
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

// RecordStateStoreOp records a state store operation
func (m *Metrics) RecordStateStoreOp(op string, duration time.Duration) {
	m.StateStoreOpsTotal.WithLabelValues(op).Inc()
	m.StateStoreOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}

// RecordStateStoreError records a state store error
func (m *Metrics) RecordStateStoreError(op string) {
	m.StateStoreErrorsTotal.WithLabelValues(op).Inc()
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
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
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

// ObservePipeline records the pipeline duration and status
func (t *Timer) ObservePipeline(ticker, status string) {
	t.metrics.RecordPipelineDuration(ticker, status, time.Since(t.start))
}

// ObservePersona records the persona stage duration
func (t *Timer) ObservePersona(persona string) {
	t.metrics.RecordPersonaDuration(persona, time.Since(t.start))
}

// ObserveExternalAPI records the external API duration
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveStateStore records the state store operation duration
func (t *Timer) ObserveStateStore(op string) {
	t.metrics.RecordStateStoreOp(op, time.Since(t.start))
}

// ObserveDB records the database query duration
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
