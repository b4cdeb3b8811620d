package adapters

import (
	"github.com/de-tools/workspace-steward/pkg/models/api"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/services/discovery"
)

func MapSnapshotDomainToApi(snap domain.WorkspaceSnapshot) api.Snapshot {
	return api.Snapshot{
		Id:           snap.ID,
		WorkspaceId:  snap.WorkspaceID,
		Name:         snap.Name,
		ResourceType: string(snap.Type),
		Counts: api.ResourceCounts{
			Lakehouses: snap.Counts.Lakehouses,
			Pipelines:  snap.Counts.Pipelines,
			SparkJobs:  snap.Counts.SparkJobs,
		},
		LastActivityAt: snap.LastActivityAt,
		Status:         string(snap.Status),
		MonthlyCost:    snap.MonthlyCost,
		CapturedAt:     snap.CapturedAt,
	}
}

func MapClassificationDomainToApi(c domain.Classification) api.Classification {
	return api.Classification{
		Label:     string(c.Label),
		Rule:      c.Rule,
		Rationale: c.Rationale,
		IdleDays:  c.IdleDays,
		CreatedAt: c.CreatedAt,
	}
}

func MapActionDomainToApi(act domain.Action) api.Action {
	return api.Action{
		Id:            act.ID,
		WorkspaceId:   act.WorkspaceID,
		WorkspaceName: act.WorkspaceName,
		ActionType:    string(act.Type),
		Category:      int(act.Category),
		Reason:        act.Reason,
		Impact:        act.Impact,
		Status:        string(act.Status),
		RetryCount:    act.RetryCount,
		CreatedAt:     act.CreatedAt,
		UpdatedAt:     act.UpdatedAt,
	}
}

func MapAuditEntryDomainToApi(entry domain.AuditEntry) api.AuditEntry {
	res := api.AuditEntry{
		Seq:                 entry.Seq,
		Id:                  entry.ID,
		ActionId:            entry.ActionID,
		WorkspaceId:         entry.WorkspaceID,
		WorkspaceName:       entry.WorkspaceName,
		ActionType:          string(entry.ActionType),
		Outcome:             string(entry.Outcome),
		BeforeState:         map[string]any{},
		AfterState:          map[string]any{},
		VerificationResults: make([]string, 0, len(entry.VerificationResults)),
		Timestamp:           entry.Timestamp,
	}
	for k, v := range entry.BeforeState {
		res.BeforeState[k] = v
	}
	for k, v := range entry.AfterState {
		res.AfterState[k] = v
	}
	res.VerificationResults = append(res.VerificationResults, entry.VerificationResults...)
	return res
}

func MapEventDomainToApi(event domain.Event) api.ActivityEvent {
	return api.ActivityEvent{
		Type:          string(event.Type),
		ActionId:      event.ActionID,
		WorkspaceId:   event.WorkspaceID,
		WorkspaceName: event.WorkspaceName,
		ActionType:    string(event.ActionType),
		Message:       event.Message,
		At:            event.At,
	}
}

func MapRunSummaryDomainToApi(summary discovery.RunSummary) api.DiscoveryRun {
	classified := make(map[string]int, len(summary.Classified))
	for label, count := range summary.Classified {
		classified[string(label)] = count
	}
	return api.DiscoveryRun{
		StartedAt:    summary.StartedAt,
		FinishedAt:   summary.FinishedAt,
		Workspaces:   summary.Workspaces,
		Classified:   classified,
		Planned:      summary.Planned,
		AutoApproved: summary.AutoApproved,
		Skipped:      summary.Skipped,
	}
}
