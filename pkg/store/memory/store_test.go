package memory

import (
	"context"
	"testing"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SnapshotHistory(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first := domain.WorkspaceSnapshot{ID: "snap-1", WorkspaceID: "ws-1", Name: "Marketing Insights"}
	second := domain.WorkspaceSnapshot{ID: "snap-2", WorkspaceID: "ws-1", Name: "Marketing Insights"}
	require.NoError(t, s.AppendSnapshot(ctx, first))
	require.NoError(t, s.AppendSnapshot(ctx, second))

	history, err := s.SnapshotHistory(ctx, "ws-1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	latest, err := s.LatestSnapshots(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "snap-2", latest[0].ID)
}

func TestStore_OpenActionInvariant(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	act := domain.Action{
		ID:          "act-1",
		WorkspaceID: "ws-1",
		Type:        domain.ActionTypeOptimize,
		Status:      domain.ActionStatusPending,
	}
	require.NoError(t, s.CreateAction(ctx, act))

	t.Run("second open action of same type conflicts", func(t *testing.T) {
		dup := act
		dup.ID = "act-2"
		assert.ErrorIs(t, s.CreateAction(ctx, dup), domain.ErrDuplicateAction)
	})

	t.Run("different type is a separate slot", func(t *testing.T) {
		other := act
		other.ID = "act-3"
		other.Type = domain.ActionTypeMonitor
		assert.NoError(t, s.CreateAction(ctx, other))
	})

	t.Run("slot frees after terminal transition", func(t *testing.T) {
		_, err := s.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusRejected, false)
		require.NoError(t, err)

		replacement := act
		replacement.ID = "act-4"
		assert.NoError(t, s.CreateAction(ctx, replacement))
	})
}

func TestStore_UpdateStatusCAS(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	require.NoError(t, s.CreateAction(ctx, domain.Action{
		ID:          "act-1",
		WorkspaceID: "ws-1",
		Type:        domain.ActionTypeDelete,
		Status:      domain.ActionStatusPending,
	}))

	updated, err := s.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusApproved, false)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusApproved, updated.Status)

	_, err = s.UpdateStatusCAS(ctx, "act-1", domain.ActionStatusPending, domain.ActionStatusRejected, false)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	_, err = s.UpdateStatusCAS(ctx, "missing", domain.ActionStatusPending, domain.ActionStatusApproved, false)
	assert.ErrorIs(t, err, domain.ErrActionNotFound)
}

func TestStore_LedgerAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	base := time.Date(2025, 11, 26, 0, 0, 0, 0, time.UTC)
	for i, ws := range []string{"ws-1", "ws-2", "ws-1"} {
		entry := domain.AuditEntry{
			ID:          string(rune('a' + i)),
			ActionID:    "act-" + string(rune('1'+i)),
			WorkspaceID: ws,
			Outcome:     domain.AuditOutcomeSuccess,
			Timestamp:   base.Add(time.Duration(i) * 24 * time.Hour),
		}
		appended, err := s.Append(ctx, entry)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), appended.Seq, "sequence is monotonic")
	}

	t.Run("filter by workspace", func(t *testing.T) {
		entries, total, err := s.Query(ctx, domain.AuditQuery{WorkspaceID: "ws-1"})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, entries, 2)
	})

	t.Run("filter by date range", func(t *testing.T) {
		entries, total, err := s.Query(ctx, domain.AuditQuery{
			From: base.Add(12 * time.Hour),
			To:   base.Add(36 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		require.Len(t, entries, 1)
		assert.Equal(t, "act-2", entries[0].ActionID)
	})

	t.Run("pagination", func(t *testing.T) {
		entries, total, err := s.Query(ctx, domain.AuditQuery{Page: 2, PageSize: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		require.Len(t, entries, 1)
		assert.Equal(t, int64(3), entries[0].Seq)
	})

	t.Run("entry lookup by action", func(t *testing.T) {
		entry, ok, err := s.EntryForAction(ctx, "act-2")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "ws-2", entry.WorkspaceID)

		_, ok, err = s.EntryForAction(ctx, "act-99")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestStore_RecentEvents(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	for i := 0; i < 5; i++ {
		require.NoError(t, s.AppendEvent(ctx, domain.Event{
			ActionID: string(rune('a' + i)),
			Type:     domain.EventActionCreated,
		}))
	}

	events, err := s.RecentEvents(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "e", events[0].ActionID, "newest first")
}
