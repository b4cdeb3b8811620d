package domain

import "time"

type ClassificationLabel string

const (
	ClassificationKeep         ClassificationLabel = "Keep"
	ClassificationReview       ClassificationLabel = "Review"
	ClassificationDecommission ClassificationLabel = "Decommission"
)

// Classification is the engine-derived disposition for a workspace snapshot.
// The label is a pure function of the snapshot fields and the guardrail
// pattern set; previous classifications are retained in history, never
// mutated in place.
type Classification struct {
	ID          string
	WorkspaceID string
	SnapshotID  string
	Label       ClassificationLabel
	// Rule identifies the classification rule that fired.
	Rule      string
	Rationale string
	IdleDays  int
	CreatedAt time.Time
}
