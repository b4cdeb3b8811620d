package domain

import "time"

type ActionType string

const (
	ActionTypeDelete   ActionType = "Delete"
	ActionTypeArchive  ActionType = "Archive"
	ActionTypeOptimize ActionType = "Optimize"
	ActionTypeMonitor  ActionType = "Monitor"
)

// ActionCategory is the severity of a remediation action, 4 being the most
// destructive.
type ActionCategory int

const (
	CategoryMonitor  ActionCategory = 1
	CategoryOptimize ActionCategory = 2
	CategoryArchive  ActionCategory = 3
	CategoryDelete   ActionCategory = 4
)

type ActionStatus string

const (
	ActionStatusPending   ActionStatus = "Pending"
	ActionStatusApproved  ActionStatus = "Approved"
	ActionStatusRejected  ActionStatus = "Rejected"
	ActionStatusExecuting ActionStatus = "Executing"
	ActionStatusCompleted ActionStatus = "Completed"
	ActionStatusFailed    ActionStatus = "Failed"
)

// Terminal reports whether no further transition is defined from s. Failed
// is terminal here even though a bounded manual retry may re-enter Approved;
// the retry itself is an explicit transition, not a continuation.
func (s ActionStatus) Terminal() bool {
	switch s {
	case ActionStatusRejected, ActionStatusCompleted, ActionStatusFailed:
		return true
	}
	return false
}

// Action is a proposed remediation against a workspace, tracked through the
// approval state machine. At most one open (non-terminal) action may exist
// per (WorkspaceID, Type) pair.
type Action struct {
	ID            string
	WorkspaceID   string
	WorkspaceName string
	Type          ActionType
	Category      ActionCategory
	Reason        string
	Impact        string
	Status        ActionStatus
	RetryCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Open reports whether the action still occupies its (workspace, type) slot.
func (a Action) Open() bool {
	return !a.Status.Terminal()
}

// Transition records one state machine transition attempt that succeeded.
type Transition struct {
	ActionID string
	Event    string
	From     ActionStatus
	To       ActionStatus
	Actor    string
	At       time.Time
}
