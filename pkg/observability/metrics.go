package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DiscoveryRuns counts completed discovery runs by result.
	DiscoveryRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steward_discovery_runs_total",
		Help: "Completed discovery runs",
	}, []string{"result"})

	// DiscoveryDuration tracks the duration of a full discovery run.
	DiscoveryDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "steward_discovery_duration_seconds",
		Help:    "Duration of a discovery run",
		Buckets: prometheus.DefBuckets,
	})

	// Classifications counts classifications by label.
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steward_classifications_total",
		Help: "Classifications produced, by label",
	}, []string{"label"})

	// ActionsPlanned counts actions created by the planner, by type.
	ActionsPlanned = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steward_actions_planned_total",
		Help: "Remediation actions created, by action type",
	}, []string{"action_type"})

	// Transitions counts successful state machine transitions.
	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steward_action_transitions_total",
		Help: "Successful approval state machine transitions",
	}, []string{"event", "to"})

	// InvalidTransitions counts rejected transition attempts.
	InvalidTransitions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steward_invalid_transitions_total",
		Help: "Transition attempts rejected by the state machine",
	})

	// TransitionRecordFailures counts transitions whose history record
	// failed to persist. The transition itself still stands, so a non-zero
	// value means the transition history has gaps and needs operator
	// attention.
	TransitionRecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steward_transition_record_failures_total",
		Help: "State transitions whose history record could not be persisted",
	})

	// Executions counts finished executions by outcome.
	Executions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "steward_executions_total",
		Help: "Action executions, by outcome",
	}, []string{"outcome"})

	// ExecutionDuration tracks remediation wall time per action.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "steward_execution_duration_seconds",
		Help:    "Duration of action execution including verification",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
	})

	// LedgerEntries counts appends to the audit ledger.
	LedgerEntries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "steward_audit_entries_total",
		Help: "Entries appended to the audit ledger",
	})
)
