package snapshot

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/adapters"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	storemodels "github.com/de-tools/workspace-steward/pkg/models/store"
	"github.com/de-tools/workspace-steward/pkg/store/duckdb"
)

// Store persists telemetry snapshots and classifications. Both tables are
// append only; history is retained per workspace.
type Store interface {
	AppendSnapshot(ctx context.Context, snap domain.WorkspaceSnapshot) error
	LatestSnapshots(ctx context.Context) ([]domain.WorkspaceSnapshot, error)
	SnapshotHistory(ctx context.Context, workspaceID string) ([]domain.WorkspaceSnapshot, error)
	AppendClassification(ctx context.Context, c domain.Classification) error
	LatestClassification(ctx context.Context, workspaceID string) (domain.Classification, bool, error)
}

type snapshotStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &snapshotStore{db: db}, nil
}

func (s *snapshotStore) AppendSnapshot(ctx context.Context, snap domain.WorkspaceSnapshot) error {
	record := adapters.MapSnapshotDomainToStore(snap)

	query := `
		INSERT INTO snapshots (
			id, workspace_id, name, resource_type, lakehouses, pipelines,
			spark_jobs, last_activity_at, status, monthly_cost, captured_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query,
			record.ID, record.WorkspaceID, record.Name, record.ResourceType,
			record.Lakehouses, record.Pipelines, record.SparkJobs,
			record.LastActivityAt, record.Status, record.MonthlyCost, record.CapturedAt)
	} else {
		_, err = s.db.ExecContext(ctx, query,
			record.ID, record.WorkspaceID, record.Name, record.ResourceType,
			record.Lakehouses, record.Pipelines, record.SparkJobs,
			record.LastActivityAt, record.Status, record.MonthlyCost, record.CapturedAt)
	}
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

func (s *snapshotStore) LatestSnapshots(ctx context.Context) ([]domain.WorkspaceSnapshot, error) {
	query := `
		SELECT id, workspace_id, name, resource_type, lakehouses, pipelines,
			spark_jobs, last_activity_at, status, monthly_cost, captured_at
		FROM snapshots
		QUALIFY ROW_NUMBER() OVER (PARTITION BY workspace_id ORDER BY captured_at DESC) = 1
		ORDER BY name`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query latest snapshots: %w", err)
	}
	defer rows.Close()
	return scanSnapshotRows(rows)
}

func (s *snapshotStore) SnapshotHistory(ctx context.Context, workspaceID string) ([]domain.WorkspaceSnapshot, error) {
	query := `
		SELECT id, workspace_id, name, resource_type, lakehouses, pipelines,
			spark_jobs, last_activity_at, status, monthly_cost, captured_at
		FROM snapshots
		WHERE workspace_id = ?
		ORDER BY captured_at`

	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("query snapshot history: %w", err)
	}
	defer rows.Close()
	return scanSnapshotRows(rows)
}

func (s *snapshotStore) AppendClassification(ctx context.Context, c domain.Classification) error {
	record := adapters.MapClassificationDomainToStore(c)

	query := `
		INSERT INTO classifications (
			id, workspace_id, snapshot_id, label, rule, rationale, idle_days, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	var err error
	if tx := duckdb.GetTransaction(ctx); tx != nil {
		_, err = tx.ExecContext(ctx, query,
			record.ID, record.WorkspaceID, record.SnapshotID, record.Label,
			record.Rule, record.Rationale, record.IdleDays, record.CreatedAt)
	} else {
		_, err = s.db.ExecContext(ctx, query,
			record.ID, record.WorkspaceID, record.SnapshotID, record.Label,
			record.Rule, record.Rationale, record.IdleDays, record.CreatedAt)
	}
	if err != nil {
		return fmt.Errorf("insert classification: %w", err)
	}
	return nil
}

func (s *snapshotStore) LatestClassification(ctx context.Context, workspaceID string) (domain.Classification, bool, error) {
	query := `
		SELECT id, workspace_id, snapshot_id, label, rule, rationale, idle_days, created_at
		FROM classifications
		WHERE workspace_id = ?
		ORDER BY created_at DESC
		LIMIT 1`

	var record storemodels.ClassificationRecord
	err := s.db.QueryRowContext(ctx, query, workspaceID).Scan(
		&record.ID, &record.WorkspaceID, &record.SnapshotID, &record.Label,
		&record.Rule, &record.Rationale, &record.IdleDays, &record.CreatedAt)
	if err == sql.ErrNoRows {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("query latest classification: %w", err)
	}
	return adapters.MapClassificationStoreToDomain(record), true, nil
}

func scanSnapshotRows(rows *sql.Rows) ([]domain.WorkspaceSnapshot, error) {
	snapshots := make([]domain.WorkspaceSnapshot, 0)
	for rows.Next() {
		var record storemodels.SnapshotRecord
		if err := rows.Scan(
			&record.ID, &record.WorkspaceID, &record.Name, &record.ResourceType,
			&record.Lakehouses, &record.Pipelines, &record.SparkJobs,
			&record.LastActivityAt, &record.Status, &record.MonthlyCost, &record.CapturedAt,
		); err != nil {
			return nil, err
		}
		snapshots = append(snapshots, adapters.MapSnapshotStoreToDomain(record))
	}
	return snapshots, rows.Err()
}
