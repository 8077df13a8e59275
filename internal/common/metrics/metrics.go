// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StepsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_steps_submitted_total",
			Help: "Total number of step submissions by step and outcome",
		},
		[]string{"step", "outcome"},
	)

	StepValidationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_step_validation_failures_total",
			Help: "Total number of field-level validation failures by step",
		},
		[]string{"step"},
	)

	NotificationsDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_notifications_total",
			Help: "Total number of notification dispatch attempts by event kind and status",
		},
		[]string{"event_kind", "status"},
	)

	TerminalCommits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verification_terminal_commits_total",
			Help: "Total number of terminal commit attempts by status",
		},
		[]string{"status"},
	)

	StepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "verification_step_duration_seconds",
			Help: "Duration of step submission processing in seconds",
		},
		[]string{"step"},
	)
)
