package store

import "time"

// SnapshotRecord is the persisted shape of a workspace telemetry snapshot.
type SnapshotRecord struct {
	ID             string
	WorkspaceID    string
	Name           string
	ResourceType   string
	Lakehouses     int
	Pipelines      int
	SparkJobs      int
	LastActivityAt time.Time
	Status         string
	MonthlyCost    float64
	CapturedAt     time.Time
}

type ClassificationRecord struct {
	ID          string
	WorkspaceID string
	SnapshotID  string
	Label       string
	Rule        string
	Rationale   string
	IdleDays    int
	CreatedAt   time.Time
}

type ActionRecord struct {
	ID            string
	WorkspaceID   string
	WorkspaceName string
	ActionType    string
	Category      int
	Reason        string
	Impact        string
	Status        string
	RetryCount    int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type TransitionRecord struct {
	ActionID   string
	Event      string
	FromStatus string
	ToStatus   string
	Actor      string
	At         time.Time
}

// AuditEntryRecord carries the state captures as JSON blobs; the ledger is
// append only so records are never updated.
type AuditEntryRecord struct {
	Seq                 int64
	ID                  string
	ActionID            string
	WorkspaceID         string
	WorkspaceName       string
	ActionType          string
	Outcome             string
	BeforeState         string
	AfterState          string
	VerificationResults string
	Timestamp           time.Time
}

type EventRecord struct {
	EventType     string
	ActionID      string
	WorkspaceID   string
	WorkspaceName string
	ActionType    string
	Message       string
	At            time.Time
}

// ActivityStats summarizes a workspace's billing activity over a window.
type ActivityStats struct {
	LastActivityAt time.Time
	MonthlyCost    float64
	RecordCount    int64
}
