package api

import "time"

type ResourceCounts struct {
	Lakehouses int `json:"lakehouses"`
	Pipelines  int `json:"pipelines"`
	SparkJobs  int `json:"sparkJobs"`
}

type Classification struct {
	Label     string    `json:"label"`
	Rule      string    `json:"rule"`
	Rationale string    `json:"rationale"`
	IdleDays  int       `json:"idleDays"`
	CreatedAt time.Time `json:"createdAt"`
}

type Snapshot struct {
	Id             string         `json:"id"`
	WorkspaceId    string         `json:"workspaceId"`
	Name           string         `json:"name"`
	ResourceType   string         `json:"resourceType"`
	Counts         ResourceCounts `json:"resourceCounts"`
	LastActivityAt time.Time      `json:"lastActivityAt"`
	Status         string         `json:"status"`
	MonthlyCost    float64        `json:"monthlyCost"`
	CapturedAt     time.Time      `json:"capturedAt"`
}

// Workspace is the dashboard's fleet row: the latest snapshot joined with
// the current classification, when one exists.
type Workspace struct {
	Snapshot
	Classification *Classification `json:"classification,omitempty"`
}

type Action struct {
	Id            string    `json:"id"`
	WorkspaceId   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	ActionType    string    `json:"actionType"`
	Category      int       `json:"category"`
	Reason        string    `json:"reason"`
	Impact        string    `json:"impact"`
	Status        string    `json:"status"`
	RetryCount    int       `json:"retryCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type AuditEntry struct {
	Seq                 int64          `json:"seq"`
	Id                  string         `json:"id"`
	ActionId            string         `json:"actionId"`
	WorkspaceId         string         `json:"workspaceId"`
	WorkspaceName       string         `json:"workspaceName"`
	ActionType          string         `json:"actionType"`
	Outcome             string         `json:"outcome"`
	BeforeState         map[string]any `json:"beforeState"`
	AfterState          map[string]any `json:"afterState"`
	VerificationResults []string       `json:"verificationResults"`
	Timestamp           time.Time      `json:"timestamp"`
}

type AuditPage struct {
	Entries  []AuditEntry `json:"entries"`
	Total    int          `json:"total"`
	Page     int          `json:"page"`
	PageSize int          `json:"pageSize"`
}

// CostSummary aggregates the latest snapshots for the cost view.
// PotentialSavings assumes idle workspaces can shed 70% of their spend.
type CostSummary struct {
	TotalMonthlyCost   float64            `json:"totalMonthlyCost"`
	CostByResourceType map[string]float64 `json:"costByResourceType"`
	IdleMonthlyCost    float64            `json:"idleMonthlyCost"`
	PotentialSavings   float64            `json:"potentialSavings"`
	Workspaces         int                `json:"workspaces"`
}

type ActivityEvent struct {
	Type          string    `json:"type"`
	ActionId      string    `json:"actionId"`
	WorkspaceId   string    `json:"workspaceId"`
	WorkspaceName string    `json:"workspaceName"`
	ActionType    string    `json:"actionType"`
	Message       string    `json:"message"`
	At            time.Time `json:"at"`
}

type DiscoveryRun struct {
	StartedAt    time.Time      `json:"startedAt"`
	FinishedAt   time.Time      `json:"finishedAt"`
	Workspaces   int            `json:"workspaces"`
	Classified   map[string]int `json:"classified"`
	Planned      int            `json:"planned"`
	AutoApproved int            `json:"autoApproved"`
	Skipped      int            `json:"skipped"`
}

type Error struct {
	Error string `json:"error"`
}
