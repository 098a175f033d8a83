// Package metrics holds the prometheus collectors for the workflow engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "leadflow"

var (
	SweepsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweeps_total",
		Help:      "Scheduler sweeps run.",
	})

	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Wall time of one scheduler sweep.",
		Buckets:   prometheus.DefBuckets,
	})

	DueInstances = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "due_instances",
		Help:      "Instances found due by the last sweep.",
	})

	ClaimConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "claim_conflicts_total",
		Help:      "Instances skipped because another sweep claimed them first.",
	})

	StepExecutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "step_executions_total",
		Help:      "Workflow steps executed, by step type and result.",
	}, []string{"type", "result"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "instance_transitions_total",
		Help:      "Instance writes, by resulting status.",
	}, []string{"status"})

	Sends = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sends_total",
		Help:      "Messages handed to a provider, by channel and delivery status.",
	}, []string{"channel", "status"})

	Enrollments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "enrollments_total",
		Help:      "Instances created, by workflow.",
	}, []string{"workflow_id"})

	Cancellations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cancellations_total",
		Help:      "Instances cancelled by a booking.",
	})
)
