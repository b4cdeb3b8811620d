package telemetry

import (
	"context"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
)

type staticWorkspace struct {
	name        string
	resource    domain.ResourceType
	counts      domain.ResourceCounts
	idleDays    int
	monthlyCost float64
}

// fleet mirrors a small mixed estate: healthy production workspaces,
// a couple of idle development ones and an abandoned trial.
var fleet = []staticWorkspace{
	{"prod-core-analytics", domain.ResourceTypePremium, domain.ResourceCounts{Lakehouses: 8, Pipelines: 12, SparkJobs: 6}, 0, 4200},
	{"production-data-hub", domain.ResourceTypePremium, domain.ResourceCounts{Lakehouses: 5, Pipelines: 9, SparkJobs: 4}, 52, 2800},
	{"customer-insights", domain.ResourceTypeStandard, domain.ResourceCounts{Lakehouses: 4, Pipelines: 6, SparkJobs: 3}, 2, 1450},
	{"ml-experiments-dev", domain.ResourceTypeStandard, domain.ResourceCounts{Lakehouses: 3, Pipelines: 2, SparkJobs: 5}, 20, 850},
	{"legacy-etl-staging", domain.ResourceTypeStandard, domain.ResourceCounts{Lakehouses: 2, Pipelines: 4, SparkJobs: 1}, 61, 620},
	{"temp-trial-workspace", domain.ResourceTypeTrial, domain.ResourceCounts{Lakehouses: 1, Pipelines: 1, SparkJobs: 0}, 46, 180},
}

// StaticSource serves the fixture fleet. Each pull re-derives activity
// timestamps from the configured clock so idle ages stay stable.
type StaticSource struct {
	now func() time.Time
}

func NewStaticSource(now func() time.Time) *StaticSource {
	if now == nil {
		now = time.Now
	}
	return &StaticSource{now: now}
}

func (s *StaticSource) Snapshots(_ context.Context) ([]domain.WorkspaceSnapshot, error) {
	now := s.now()
	snapshots := make([]domain.WorkspaceSnapshot, 0, len(fleet))
	for _, ws := range fleet {
		snap := domain.WorkspaceSnapshot{
			Name:           ws.name,
			Type:           ws.resource,
			Counts:         ws.counts,
			LastActivityAt: now.Add(-time.Duration(ws.idleDays) * 24 * time.Hour),
			MonthlyCost:    ws.monthlyCost,
		}
		snapshots = append(snapshots, Normalize(snap, now))
	}
	return snapshots, nil
}
