package action

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/store/duckdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	db    *sql.DB
	store Store
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := duckdb.NewDB(duckdb.Settings{DbPath: ":memory:"})
	require.NoError(t, err)

	store, err := NewStore(db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return &fixture{db: db, store: store}
}

func testAction(id string) domain.Action {
	now := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)
	return domain.Action{
		ID:            id,
		WorkspaceID:   "ws-1",
		WorkspaceName: "ml-experiments-dev",
		Type:          domain.ActionTypeOptimize,
		Category:      domain.CategoryOptimize,
		Reason:        "No activity for 20 days",
		Impact:        "Reduce compute capacity by 40%, estimated savings $340/month",
		Status:        domain.ActionStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func TestActionStore_CreateAction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	t.Run("success - create and read back", func(t *testing.T) {
		require.NoError(t, f.store.CreateAction(ctx, testAction("act-1")))

		got, err := f.store.GetAction(ctx, "act-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ActionTypeOptimize, got.Type)
		assert.Equal(t, domain.CategoryOptimize, got.Category)
		assert.Equal(t, domain.ActionStatusPending, got.Status)
		assert.Equal(t, "ml-experiments-dev", got.WorkspaceName)
	})

	t.Run("error - open slot is taken", func(t *testing.T) {
		err := f.store.CreateAction(ctx, testAction("act-2"))
		assert.ErrorIs(t, err, domain.ErrDuplicateAction)

		exists, err := f.store.OpenActionExists(ctx, "ws-1", domain.ActionTypeOptimize)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("success - different type takes its own slot", func(t *testing.T) {
		other := testAction("act-3")
		other.Type = domain.ActionTypeMonitor
		other.Category = domain.CategoryMonitor
		require.NoError(t, f.store.CreateAction(ctx, other))
	})

	t.Run("error - unknown action lookup", func(t *testing.T) {
		_, err := f.store.GetAction(ctx, "no-such-id")
		assert.ErrorIs(t, err, domain.ErrActionNotFound)
	})
}

func TestActionStore_UpdateStatusCAS(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateAction(ctx, testAction("act-1")))

	t.Run("success - matching expected status", func(t *testing.T) {
		got, err := f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusApproved, false)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionStatusApproved, got.Status)
	})

	t.Run("error - stale expected status", func(t *testing.T) {
		_, err := f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusRejected, false)
		assert.ErrorIs(t, err, domain.ErrInvalidTransition)

		got, err := f.store.GetAction(ctx, "act-1")
		require.NoError(t, err)
		assert.Equal(t, domain.ActionStatusApproved, got.Status)
	})

	t.Run("success - retry increments the counter", func(t *testing.T) {
		_, err := f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusApproved, domain.ActionStatusExecuting, false)
		require.NoError(t, err)
		_, err = f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusExecuting, domain.ActionStatusFailed, false)
		require.NoError(t, err)

		got, err := f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusFailed, domain.ActionStatusApproved, true)
		require.NoError(t, err)
		assert.Equal(t, 1, got.RetryCount)
	})

	t.Run("error - unknown action", func(t *testing.T) {
		_, err := f.store.UpdateStatusCAS(ctx, "no-such-id", domain.ActionStatusPending, domain.ActionStatusApproved, false)
		assert.ErrorIs(t, err, domain.ErrActionNotFound)
	})

	t.Run("terminal action frees the slot", func(t *testing.T) {
		_, err := f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusApproved, domain.ActionStatusExecuting, false)
		require.NoError(t, err)
		_, err = f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusExecuting, domain.ActionStatusCompleted, false)
		require.NoError(t, err)

		exists, err := f.store.OpenActionExists(ctx, "ws-1", domain.ActionTypeOptimize)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestActionStore_ListActions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()

	first := testAction("act-1")
	second := testAction("act-2")
	second.Type = domain.ActionTypeMonitor
	second.CreatedAt = first.CreatedAt.Add(time.Minute)
	require.NoError(t, f.store.CreateAction(ctx, first))
	require.NoError(t, f.store.CreateAction(ctx, second))

	all, err := f.store.ListActions(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "act-1", all[0].ID)
	assert.Equal(t, "act-2", all[1].ID)

	_, err = f.store.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusApproved, false)
	require.NoError(t, err)

	pending, err := f.store.ListActions(ctx, domain.ActionStatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "act-2", pending[0].ID)
}

func TestActionStore_Transitions(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	require.NoError(t, f.store.CreateAction(ctx, testAction("act-1")))

	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)
	require.NoError(t, f.store.AppendTransition(ctx, domain.Transition{
		ActionID: "act-1",
		Event:    "approve",
		From:     domain.ActionStatusPending,
		To:       domain.ActionStatusApproved,
		Actor:    "alice",
		At:       base,
	}))
	require.NoError(t, f.store.AppendTransition(ctx, domain.Transition{
		ActionID: "act-1",
		Event:    "execute",
		From:     domain.ActionStatusApproved,
		To:       domain.ActionStatusExecuting,
		Actor:    "system:executor",
		At:       base.Add(time.Minute),
	}))

	transitions, err := f.store.TransitionsForAction(ctx, "act-1")
	require.NoError(t, err)
	require.Len(t, transitions, 2)
	assert.Equal(t, "approve", transitions[0].Event)
	assert.Equal(t, "execute", transitions[1].Event)
	assert.Equal(t, "alice", transitions[0].Actor)
}
