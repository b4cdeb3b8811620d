package domain

import "time"

type ResourceType string

const (
	ResourceTypeStandard ResourceType = "Standard"
	ResourceTypePremium  ResourceType = "Premium"
	ResourceTypeTrial    ResourceType = "Trial"
)

type WorkspaceStatus string

const (
	WorkspaceStatusActive  WorkspaceStatus = "Active"
	WorkspaceStatusIdle    WorkspaceStatus = "Idle"
	WorkspaceStatusWarning WorkspaceStatus = "Warning"
)

type ResourceCounts struct {
	Lakehouses int
	Pipelines  int
	SparkJobs  int
}

// WorkspaceSnapshot is a point-in-time capture of a workspace's measurable
// state. Snapshots are immutable once captured; a new one is taken per
// discovery run.
type WorkspaceSnapshot struct {
	ID             string
	WorkspaceID    string
	Name           string
	Type           ResourceType
	Counts         ResourceCounts
	LastActivityAt time.Time
	Status         WorkspaceStatus
	MonthlyCost    float64
	CapturedAt     time.Time
}
