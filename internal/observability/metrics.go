package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting Prometheus metrics
// about a run's API calls and step executions.
//
// Usage:
//
//	metrics := observability.NewMetrics()
//	start := time.Now()
//	plan := planner.Plan(ctx, req)
//	metrics.RecordAPIRequest("task_planner", statusOf(plan.Success), time.Since(start).Seconds())
type Metrics struct {
	// APIRequestDuration measures vision/task-planner API call latency in seconds.
	// Labels: kind (vision|task_planner)
	APIRequestDuration *prometheus.HistogramVec

	// APIRequestCounter counts API requests by kind and status.
	// Labels: kind (vision|task_planner), status (success|error)
	APIRequestCounter *prometheus.CounterVec

	// StepExecutionCounter counts step executions by action type and status.
	// Labels: action_type, status (success|error)
	StepExecutionCounter *prometheus.CounterVec

	// StepExecutionDuration measures step execution time in seconds.
	// Labels: action_type
	StepExecutionDuration *prometheus.HistogramVec

	// ErrorCounter tracks errors by component and error kind.
	// Labels: component (director|vision|planner|step), error_kind
	ErrorCounter *prometheus.CounterVec

	// ReplanCounter counts replans triggered during a run, by outcome.
	// Labels: outcome (accepted|rejected)
	ReplanCounter *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics. This should be
// called once at application startup; all metrics register with
// Prometheus's default registry.
func NewMetrics() *Metrics {
	return &Metrics{
		APIRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ciuagent_api_request_duration_seconds",
				Help:    "Duration of vision/task-planner API requests in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"kind"},
		),

		APIRequestCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ciuagent_api_requests_total",
				Help: "Total number of vision/task-planner API requests by kind and status",
			},
			[]string{"kind", "status"},
		),

		StepExecutionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ciuagent_step_executions_total",
				Help: "Total number of step executions by action type and status",
			},
			[]string{"action_type", "status"},
		),

		StepExecutionDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ciuagent_step_execution_duration_seconds",
				Help:    "Duration of step executions in seconds",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
			},
			[]string{"action_type"},
		),

		ErrorCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ciuagent_errors_total",
				Help: "Total number of errors by component and error kind",
			},
			[]string{"component", "error_kind"},
		),

		ReplanCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ciuagent_replans_total",
				Help: "Total number of replans triggered during a run, by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// RecordAPIRequest records metrics for one vision or task-planner API request.
func (m *Metrics) RecordAPIRequest(kind, status string, durationSeconds float64) {
	m.APIRequestCounter.WithLabelValues(kind, status).Inc()
	m.APIRequestDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordStepExecution records metrics for one step execution.
func (m *Metrics) RecordStepExecution(actionType, status string, durationSeconds float64) {
	m.StepExecutionCounter.WithLabelValues(actionType, status).Inc()
	m.StepExecutionDuration.WithLabelValues(actionType).Observe(durationSeconds)
}

// RecordError increments the error counter for a given component and error kind.
func (m *Metrics) RecordError(component, errorKind string) {
	m.ErrorCounter.WithLabelValues(component, errorKind).Inc()
}

// RecordReplan increments the replan counter for a given outcome.
func (m *Metrics) RecordReplan(outcome string) {
	m.ReplanCounter.WithLabelValues(outcome).Inc()
}
