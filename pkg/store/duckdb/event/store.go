package event

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/de-tools/workspace-steward/pkg/adapters"
	"github.com/de-tools/workspace-steward/pkg/models/domain"
	storemodels "github.com/de-tools/workspace-steward/pkg/models/store"
)

// Store records the action lifecycle event feed backing the activity view.
type Store interface {
	AppendEvent(ctx context.Context, event domain.Event) error
	RecentEvents(ctx context.Context, limit int) ([]domain.Event, error)
}

type eventStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) (Store, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	return &eventStore{db: db}, nil
}

func (s *eventStore) AppendEvent(ctx context.Context, event domain.Event) error {
	record := adapters.MapEventDomainToStore(event)
	query := `
		INSERT INTO events (event_type, action_id, workspace_id, workspace_name, action_type, message, "at")
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.db.ExecContext(ctx, query,
		record.EventType, record.ActionID, record.WorkspaceID,
		record.WorkspaceName, record.ActionType, record.Message, record.At); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

func (s *eventStore) RecentEvents(ctx context.Context, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT event_type, action_id, workspace_id, workspace_name, action_type, message, "at"
		FROM events
		ORDER BY "at" DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.Event, 0)
	for rows.Next() {
		var record storemodels.EventRecord
		if err := rows.Scan(
			&record.EventType, &record.ActionID, &record.WorkspaceID,
			&record.WorkspaceName, &record.ActionType, &record.Message, &record.At,
		); err != nil {
			return nil, err
		}
		events = append(events, adapters.MapEventStoreToDomain(record))
	}
	return events, rows.Err()
}
