package adapters

import (
	"encoding/json"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/models/store"
)

func MapSnapshotDomainToStore(snap domain.WorkspaceSnapshot) store.SnapshotRecord {
	return store.SnapshotRecord{
		ID:             snap.ID,
		WorkspaceID:    snap.WorkspaceID,
		Name:           snap.Name,
		ResourceType:   string(snap.Type),
		Lakehouses:     snap.Counts.Lakehouses,
		Pipelines:      snap.Counts.Pipelines,
		SparkJobs:      snap.Counts.SparkJobs,
		LastActivityAt: snap.LastActivityAt,
		Status:         string(snap.Status),
		MonthlyCost:    snap.MonthlyCost,
		CapturedAt:     snap.CapturedAt,
	}
}

func MapSnapshotStoreToDomain(record store.SnapshotRecord) domain.WorkspaceSnapshot {
	return domain.WorkspaceSnapshot{
		ID:          record.ID,
		WorkspaceID: record.WorkspaceID,
		Name:        record.Name,
		Type:        domain.ResourceType(record.ResourceType),
		Counts: domain.ResourceCounts{
			Lakehouses: record.Lakehouses,
			Pipelines:  record.Pipelines,
			SparkJobs:  record.SparkJobs,
		},
		LastActivityAt: record.LastActivityAt,
		Status:         domain.WorkspaceStatus(record.Status),
		MonthlyCost:    record.MonthlyCost,
		CapturedAt:     record.CapturedAt,
	}
}

func MapClassificationDomainToStore(c domain.Classification) store.ClassificationRecord {
	return store.ClassificationRecord{
		ID:          c.ID,
		WorkspaceID: c.WorkspaceID,
		SnapshotID:  c.SnapshotID,
		Label:       string(c.Label),
		Rule:        c.Rule,
		Rationale:   c.Rationale,
		IdleDays:    c.IdleDays,
		CreatedAt:   c.CreatedAt,
	}
}

func MapClassificationStoreToDomain(record store.ClassificationRecord) domain.Classification {
	return domain.Classification{
		ID:          record.ID,
		WorkspaceID: record.WorkspaceID,
		SnapshotID:  record.SnapshotID,
		Label:       domain.ClassificationLabel(record.Label),
		Rule:        record.Rule,
		Rationale:   record.Rationale,
		IdleDays:    record.IdleDays,
		CreatedAt:   record.CreatedAt,
	}
}

func MapActionDomainToStore(act domain.Action) store.ActionRecord {
	return store.ActionRecord{
		ID:            act.ID,
		WorkspaceID:   act.WorkspaceID,
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

func MapActionStoreToDomain(record store.ActionRecord) domain.Action {
	return domain.Action{
		ID:            record.ID,
		WorkspaceID:   record.WorkspaceID,
		WorkspaceName: record.WorkspaceName,
		Type:          domain.ActionType(record.ActionType),
		Category:      domain.ActionCategory(record.Category),
		Reason:        record.Reason,
		Impact:        record.Impact,
		Status:        domain.ActionStatus(record.Status),
		RetryCount:    record.RetryCount,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

func MapTransitionDomainToStore(t domain.Transition) store.TransitionRecord {
	return store.TransitionRecord{
		ActionID:   t.ActionID,
		Event:      t.Event,
		FromStatus: string(t.From),
		ToStatus:   string(t.To),
		Actor:      t.Actor,
		At:         t.At,
	}
}

func MapTransitionStoreToDomain(record store.TransitionRecord) domain.Transition {
	return domain.Transition{
		ActionID: record.ActionID,
		Event:    record.Event,
		From:     domain.ActionStatus(record.FromStatus),
		To:       domain.ActionStatus(record.ToStatus),
		Actor:    record.Actor,
		At:       record.At,
	}
}

// MapAuditEntryDomainToStore serializes the state captures and check
// results to JSON for the ledger's blob columns.
func MapAuditEntryDomainToStore(entry domain.AuditEntry) (store.AuditEntryRecord, error) {
	before, err := json.Marshal(entry.BeforeState)
	if err != nil {
		return store.AuditEntryRecord{}, err
	}
	after, err := json.Marshal(entry.AfterState)
	if err != nil {
		return store.AuditEntryRecord{}, err
	}
	results, err := json.Marshal(entry.VerificationResults)
	if err != nil {
		return store.AuditEntryRecord{}, err
	}

	return store.AuditEntryRecord{
		Seq:                 entry.Seq,
		ID:                  entry.ID,
		ActionID:            entry.ActionID,
		WorkspaceID:         entry.WorkspaceID,
		WorkspaceName:       entry.WorkspaceName,
		ActionType:          string(entry.ActionType),
		Outcome:             string(entry.Outcome),
		BeforeState:         string(before),
		AfterState:          string(after),
		VerificationResults: string(results),
		Timestamp:           entry.Timestamp,
	}, nil
}

func MapAuditEntryStoreToDomain(record store.AuditEntryRecord) (domain.AuditEntry, error) {
	entry := domain.AuditEntry{
		Seq:           record.Seq,
		ID:            record.ID,
		ActionID:      record.ActionID,
		WorkspaceID:   record.WorkspaceID,
		WorkspaceName: record.WorkspaceName,
		ActionType:    domain.ActionType(record.ActionType),
		Outcome:       domain.AuditOutcome(record.Outcome),
		Timestamp:     record.Timestamp,
	}

	if record.BeforeState != "" {
		if err := json.Unmarshal([]byte(record.BeforeState), &entry.BeforeState); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	if record.AfterState != "" {
		if err := json.Unmarshal([]byte(record.AfterState), &entry.AfterState); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	if record.VerificationResults != "" {
		if err := json.Unmarshal([]byte(record.VerificationResults), &entry.VerificationResults); err != nil {
			return domain.AuditEntry{}, err
		}
	}
	return entry, nil
}

func MapEventDomainToStore(event domain.Event) store.EventRecord {
	return store.EventRecord{
		EventType:     string(event.Type),
		ActionID:      event.ActionID,
		WorkspaceID:   event.WorkspaceID,
		WorkspaceName: event.WorkspaceName,
		ActionType:    string(event.ActionType),
		Message:       event.Message,
		At:            event.At,
	}
}

func MapEventStoreToDomain(record store.EventRecord) domain.Event {
	return domain.Event{
		Type:          domain.EventType(record.EventType),
		ActionID:      record.ActionID,
		WorkspaceID:   record.WorkspaceID,
		WorkspaceName: record.WorkspaceName,
		ActionType:    domain.ActionType(record.ActionType),
		Message:       record.Message,
		At:            record.At,
	}
}
