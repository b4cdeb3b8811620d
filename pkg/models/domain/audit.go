package domain

import "time"

type AuditOutcome string

const (
	AuditOutcomeSuccess AuditOutcome = "Success"
	AuditOutcomeFailed  AuditOutcome = "Failed"
	AuditOutcomePending AuditOutcome = "Pending"
)

// StateCapture is an opaque key/value snapshot of the measurable fields
// relevant to an action, taken before and after execution.
type StateCapture map[string]any

// AuditEntry is one append-only ledger record. Entries are keyed by a
// monotonically increasing Seq and are never updated or deleted; an entry
// exists if and only if its action reached a terminal state.
type AuditEntry struct {
	Seq                 int64
	ID                  string
	ActionID            string
	WorkspaceID         string
	WorkspaceName       string
	ActionType          ActionType
	Outcome             AuditOutcome
	BeforeState         StateCapture
	AfterState          StateCapture
	VerificationResults []string
	Timestamp           time.Time
}

// AuditQuery filters and paginates a ledger read. Zero values mean
// "unfiltered"; page numbering starts at 1.
type AuditQuery struct {
	WorkspaceID string
	From        time.Time
	To          time.Time
	Page        int
	PageSize    int
}
