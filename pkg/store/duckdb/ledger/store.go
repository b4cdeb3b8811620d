package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/adapters"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	storemodels "github.com/de-tools/workspace-steward/pkg/models/store"
)

// Store is the append-only audit ledger. Entries are never updated or
// deleted; the sequence number is assigned by the database.
type Store interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	EntryForAction(ctx context.Context, actionID string) (domain.AuditEntry, bool, error)
	Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int, error)
	EntryCount(ctx context.Context) (int, error)
}

type ledgerStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &ledgerStore{db: db}, nil
}

const entryColumns = `
	seq, id, action_id, workspace_id, workspace_name, action_type,
	outcome, before_state::VARCHAR, after_state::VARCHAR, verification_results::VARCHAR, ts`

func (s *ledgerStore) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	record, err := adapters.MapAuditEntryDomainToStore(entry)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("encode audit entry: %w", err)
	}

	query := `
		INSERT INTO audit_entries (
			id, action_id, workspace_id, workspace_name, action_type,
			outcome, before_state, after_state, verification_results, ts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING seq`

	var seq int64
	if err := s.db.QueryRowContext(ctx, query,
		record.ID, record.ActionID, record.WorkspaceID, record.WorkspaceName,
		record.ActionType, record.Outcome, record.BeforeState, record.AfterState,
		record.VerificationResults, record.Timestamp).Scan(&seq); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("append audit entry: %w", err)
	}

	entry.Seq = seq
	return entry, nil
}

func (s *ledgerStore) EntryForAction(ctx context.Context, actionID string) (domain.AuditEntry, bool, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM audit_entries
		WHERE action_id = ?
		ORDER BY seq DESC
		LIMIT 1`

	record, err := scanEntry(s.db.QueryRowContext(ctx, query, actionID))
	if err == sql.ErrNoRows {
		return domain.AuditEntry{}, false, nil
	}
	if err != nil {
		return domain.AuditEntry{}, false, fmt.Errorf("get audit entry: %w", err)
	}

	entry, err := adapters.MapAuditEntryStoreToDomain(record)
	if err != nil {
		return domain.AuditEntry{}, false, fmt.Errorf("decode audit entry: %w", err)
	}
	return entry, true, nil
}

// Query returns a page of entries in ledger order plus the total count
// matching the filters.
func (s *ledgerStore) Query(ctx context.Context, q domain.AuditQuery) ([]domain.AuditEntry, int, error) {
	where := ` WHERE 1 = 1`
	args := []any{}
	if q.WorkspaceID != "" {
		where += ` AND workspace_id = ?`
		args = append(args, q.WorkspaceID)
	}
	if !q.From.IsZero() {
		where += ` AND ts >= ?`
		args = append(args, q.From)
	}
	if !q.To.IsZero() {
		where += ` AND ts <= ?`
		args = append(args, q.To)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}

	query := `SELECT ` + entryColumns + ` FROM audit_entries` + where + ` ORDER BY seq`
	pageSize := q.PageSize
	if pageSize > 0 {
		page := q.Page
		if page < 1 {
			page = 1
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, pageSize, (page-1)*pageSize)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query audit entries: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.AuditEntry, 0)
	for rows.Next() {
		record, err := scanEntry(rows)
		if err != nil {
			return nil, 0, err
		}
		entry, err := adapters.MapAuditEntryStoreToDomain(record)
		if err != nil {
			return nil, 0, fmt.Errorf("decode audit entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, total, rows.Err()
}

func (s *ledgerStore) EntryCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_entries`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit entries: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (storemodels.AuditEntryRecord, error) {
	var record storemodels.AuditEntryRecord
	err := row.Scan(
		&record.Seq, &record.ID, &record.ActionID, &record.WorkspaceID,
		&record.WorkspaceName, &record.ActionType, &record.Outcome,
		&record.BeforeState, &record.AfterState, &record.VerificationResults,
		&record.Timestamp)
	return record, err
}
