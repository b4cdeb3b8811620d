package telemetry

import (
	"context"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/google/uuid"
)

// Source yields one snapshot per governed workspace. Providers pull from
// the platform APIs; the static source serves a fixture fleet for local
// runs and tests.
type Source interface {
	Snapshots(ctx context.Context) ([]domain.WorkspaceSnapshot, error)
}

// Status thresholds applied when a provider reports activity but no
// status of its own.
const (
	idleAfter    = 7 * 24 * time.Hour
	warningAfter = 30 * 24 * time.Hour
)

// Normalize fills the snapshot fields a provider is allowed to omit. The
// workspace id falls back to the name, the status is derived from the
// activity recency, and the capture time defaults to now.
func Normalize(snap domain.WorkspaceSnapshot, now time.Time) domain.WorkspaceSnapshot {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.WorkspaceID == "" {
		snap.WorkspaceID = snap.Name
	}
	if snap.Type == "" {
		snap.Type = domain.ResourceTypeStandard
	}
	if snap.CapturedAt.IsZero() {
		snap.CapturedAt = now
	}
	if snap.LastActivityAt.IsZero() {
		snap.LastActivityAt = snap.CapturedAt
	}
	if snap.Status == "" {
		switch gap := now.Sub(snap.LastActivityAt); {
		case gap >= warningAfter:
			snap.Status = domain.WorkspaceStatusWarning
		case gap >= idleAfter:
			snap.Status = domain.WorkspaceStatusIdle
		default:
			snap.Status = domain.WorkspaceStatusActive
		}
	}
	return snap
}
