package event

import (
	"context"
	"testing"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventStore(t *testing.T) {
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() {
		db.Close()
	})

	store, err := NewStore(db)
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	for i, typ := range []domain.EventType{domain.EventActionCreated, domain.EventActionApproved, domain.EventActionCompleted} {
		require.NoError(t, store.AppendEvent(ctx, domain.Event{
			Type:          typ,
			ActionID:      "act-1",
			WorkspaceID:   "ws-1",
			WorkspaceName: "ml-experiments-dev",
			ActionType:    domain.ActionTypeOptimize,
			Message:       string(typ),
			At:            base.Add(time.Duration(i) * time.Minute),
		}))
	}

	t.Run("recent events are newest first", func(t *testing.T) {
		events, err := store.RecentEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 3)
		assert.Equal(t, domain.EventActionCompleted, events[0].Type)
		assert.Equal(t, domain.EventActionCreated, events[2].Type)
	})

	t.Run("limit caps the feed", func(t *testing.T) {
		events, err := store.RecentEvents(ctx, 2)
		require.NoError(t, err)
		assert.Len(t, events, 2)
	})
}
