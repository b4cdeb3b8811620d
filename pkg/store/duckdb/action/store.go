package action

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/adapters"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	storemodels "github.com/de-tools/workspace-steward/pkg/models/store"
)

// openStatuses enumerates the non-terminal statuses for the slot check.
const openStatuses = `('Pending', 'Approved', 'Executing')`

// Store persists actions and their transition log.
type Store interface {
	OpenActionExists(ctx context.Context, workspaceID string, actionType domain.ActionType) (bool, error)
	CreateAction(ctx context.Context, action domain.Action) error
	GetAction(ctx context.Context, id string) (domain.Action, error)
	ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.Action, error)
	UpdateStatusCAS(ctx context.Context, id string, from, to domain.ActionStatus, incrementRetry bool) (domain.Action, error)
	AppendTransition(ctx context.Context, t domain.Transition) error
	TransitionsForAction(ctx context.Context, actionID string) ([]domain.Transition, error)
}

type actionStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &actionStore{db: db}, nil
}

func (s *actionStore) OpenActionExists(ctx context.Context, workspaceID string, actionType domain.ActionType) (bool, error) {
	query := `
		SELECT COUNT(*) FROM actions
		WHERE workspace_id = ? AND action_type = ? AND status IN ` + openStatuses

	var count int
	if err := s.db.QueryRowContext(ctx, query, workspaceID, string(actionType)).Scan(&count); err != nil {
		return false, fmt.Errorf("check open actions: %w", err)
	}
	return count > 0, nil
}

// CreateAction inserts the action, guarding the one-open-action-per-slot
// invariant inside a transaction.
func (s *actionStore) CreateAction(ctx context.Context, action domain.Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create action: %w", err)
	}
	defer tx.Rollback()

	var count int
	checkQuery := `
		SELECT COUNT(*) FROM actions
		WHERE workspace_id = ? AND action_type = ? AND status IN ` + openStatuses
	if err := tx.QueryRowContext(ctx, checkQuery, action.WorkspaceID, string(action.Type)).Scan(&count); err != nil {
		return fmt.Errorf("check open actions: %w", err)
	}
	if count > 0 {
		return domain.ErrDuplicateAction
	}

	record := adapters.MapActionDomainToStore(action)
	insertQuery := `
		INSERT INTO actions (
			id, workspace_id, workspace_name, action_type, category,
			reason, impact, status, retry_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := tx.ExecContext(ctx, insertQuery,
		record.ID, record.WorkspaceID, record.WorkspaceName, record.ActionType,
		record.Category, record.Reason, record.Impact, record.Status,
		record.RetryCount, record.CreatedAt, record.UpdatedAt); err != nil {
		return fmt.Errorf("insert action: %w", err)
	}

	return tx.Commit()
}

const actionColumns = `
	id, workspace_id, workspace_name, action_type, category,
	reason, impact, status, retry_count, created_at, updated_at`

func (s *actionStore) GetAction(ctx context.Context, id string) (domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = ?`

	record, err := scanAction(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return domain.Action{}, domain.ErrActionNotFound
	}
	if err != nil {
		return domain.Action{}, fmt.Errorf("get action: %w", err)
	}
	return adapters.MapActionStoreToDomain(record), nil
}

func (s *actionStore) ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	defer rows.Close()

	actions := make([]domain.Action, 0)
	for rows.Next() {
		record, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, adapters.MapActionStoreToDomain(record))
	}
	return actions, rows.Err()
}

// UpdateStatusCAS performs the compare-and-swap the state machine relies
// on: the UPDATE matches on the expected current status, and zero affected
// rows means a racing transition won.
func (s *actionStore) UpdateStatusCAS(
	ctx context.Context,
	id string,
	from, to domain.ActionStatus,
	incrementRetry bool,
) (domain.Action, error) {
	retryBump := 0
	if incrementRetry {
		retryBump = 1
	}

	query := `
		UPDATE actions
		SET status = ?, retry_count = retry_count + ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?`

	res, err := s.db.ExecContext(ctx, query, string(to), retryBump, id, string(from))
	if err != nil {
		return domain.Action{}, fmt.Errorf("update action status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Action{}, fmt.Errorf("update action status: %w", err)
	}
	if affected == 0 {
		// Either the action is unknown or its status moved underneath us.
		if _, err := s.GetAction(ctx, id); err != nil {
			return domain.Action{}, err
		}
		return domain.Action{}, domain.ErrInvalidTransition
	}

	return s.GetAction(ctx, id)
}

func (s *actionStore) AppendTransition(ctx context.Context, t domain.Transition) error {
	record := adapters.MapTransitionDomainToStore(t)
	query := `
		INSERT INTO action_transitions (action_id, event, from_status, to_status, actor, "at")
		VALUES (?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		record.ActionID, record.Event, record.FromStatus, record.ToStatus,
		record.Actor, record.At); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (s *actionStore) TransitionsForAction(ctx context.Context, actionID string) ([]domain.Transition, error) {
	query := `
		SELECT action_id, event, from_status, to_status, actor, "at"
		FROM action_transitions
		WHERE action_id = ?
		ORDER BY "at"`

	rows, err := s.db.QueryContext(ctx, query, actionID)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	transitions := make([]domain.Transition, 0)
	for rows.Next() {
		var record storemodels.TransitionRecord
		if err := rows.Scan(
			&record.ActionID, &record.Event, &record.FromStatus,
			&record.ToStatus, &record.Actor, &record.At,
		); err != nil {
			return nil, err
		}
		transitions = append(transitions, adapters.MapTransitionStoreToDomain(record))
	}
	return transitions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAction(row rowScanner) (storemodels.ActionRecord, error) {
	var record storemodels.ActionRecord
	err := row.Scan(
		&record.ID, &record.WorkspaceID, &record.WorkspaceName, &record.ActionType,
		&record.Category, &record.Reason, &record.Impact, &record.Status,
		&record.RetryCount, &record.CreatedAt, &record.UpdatedAt)
	return record, err
}
