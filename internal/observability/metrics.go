// Package observability provides Prometheus metrics for the relay.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects counters and histograms for message flow, model calls,
// tool executions, and outbound delivery. All methods are safe on a nil
// receiver so metrics stay optional in tests.
type Metrics struct {
	// MessageCounter tracks inbound/outbound messages.
	// Labels: direction (inbound|outbound)
	MessageCounter *prometheus.CounterVec

	// ModelRequestCounter counts backend exchanges.
	// Labels: status (success|error)
	ModelRequestCounter *prometheus.CounterVec

	// ModelTokens tracks token consumption.
	// Labels: type (input|output)
	ModelTokens *prometheus.CounterVec

	// ToolExecutionCounter counts tool invocations.
	// Labels: tool, status (success|error)
	ToolExecutionCounter *prometheus.CounterVec

	// DeliveryAttemptCounter counts outbound delivery attempts.
	// Labels: op (send|send_with_control|edit|ack), status (success|error)
	DeliveryAttemptCounter *prometheus.CounterVec

	// TaskOutcomeCounter counts processing task outcomes.
	// Labels: outcome (completed|failed|interrupted)
	TaskOutcomeCounter *prometheus.CounterVec

	// ActiveTasks gauges the number of in-flight processing tasks.
	ActiveTasks prometheus.Gauge

	// LoopDuration measures full pipeline duration in seconds.
	LoopDuration prometheus.Histogram
}

// NewMetrics registers the relay metrics with the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MessageCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_total",
			Help: "Messages by direction.",
		}, []string{"direction"}),
		ModelRequestCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_model_requests_total",
			Help: "Model backend exchanges by status.",
		}, []string{"status"}),
		ModelTokens: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_model_tokens_total",
			Help: "Token consumption by type.",
		}, []string{"type"}),
		ToolExecutionCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_tool_executions_total",
			Help: "Tool invocations by tool and status.",
		}, []string{"tool", "status"}),
		DeliveryAttemptCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_delivery_attempts_total",
			Help: "Outbound delivery attempts by operation and status.",
		}, []string{"op", "status"}),
		TaskOutcomeCounter: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_task_outcomes_total",
			Help: "Processing task outcomes.",
		}, []string{"outcome"}),
		ActiveTasks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "relay_active_tasks",
			Help: "In-flight processing tasks.",
		}),
		LoopDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "relay_pipeline_duration_seconds",
			Help:    "Full pipeline duration.",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
	}
}

// RecordMessage increments the message counter for a direction.
func (m *Metrics) RecordMessage(direction string) {
	if m == nil {
		return
	}
	m.MessageCounter.WithLabelValues(direction).Inc()
}

// RecordModelRequest records one backend exchange and its token usage.
func (m *Metrics) RecordModelRequest(status string, inputTokens, outputTokens int) {
	if m == nil {
		return
	}
	m.ModelRequestCounter.WithLabelValues(status).Inc()
	m.ModelTokens.WithLabelValues("input").Add(float64(inputTokens))
	m.ModelTokens.WithLabelValues("output").Add(float64(outputTokens))
}

// RecordToolExecution records one tool invocation.
func (m *Metrics) RecordToolExecution(tool, status string) {
	if m == nil {
		return
	}
	m.ToolExecutionCounter.WithLabelValues(tool, status).Inc()
}

// RecordDeliveryAttempt records one outbound delivery attempt.
func (m *Metrics) RecordDeliveryAttempt(op, status string) {
	if m == nil {
		return
	}
	m.DeliveryAttemptCounter.WithLabelValues(op, status).Inc()
}

// RecordTaskOutcome records a terminal task state.
func (m *Metrics) RecordTaskOutcome(outcome string) {
	if m == nil {
		return
	}
	m.TaskOutcomeCounter.WithLabelValues(outcome).Inc()
}

// TaskStarted increments the active task gauge.
func (m *Metrics) TaskStarted() {
	if m == nil {
		return
	}
	m.ActiveTasks.Inc()
}

// TaskFinished decrements the active task gauge and observes duration.
func (m *Metrics) TaskFinished(seconds float64) {
	if m == nil {
		return
	}
	m.ActiveTasks.Dec()
	m.LoopDuration.Observe(seconds)
}
