// Package metrics exposes Prometheus collectors for the itinerary workflow.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packvote_workflow_runs_total",
			Help: "Total workflow runs by termination kind",
		},
		[]string{"termination"},
	)

	stageExecutionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packvote_stage_executions_total",
			Help: "Total stage executions by stage name",
		},
		[]string{"stage"},
	)

	toolErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "packvote_tool_errors_total",
			Help: "Total recovered tool-call failures by tool name",
		},
		[]string{"tool"},
	)
)

// RecordRun counts one completed workflow run.
func RecordRun(termination string) {
	runsTotal.WithLabelValues(termination).Inc()
}

// RecordStage counts one stage execution.
func RecordStage(stage string) {
	stageExecutionsTotal.WithLabelValues(stage).Inc()
}

// RecordToolError counts one recovered tool failure.
func RecordToolError(tool string) {
	toolErrorsTotal.WithLabelValues(tool).Inc()
}
