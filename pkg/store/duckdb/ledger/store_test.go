package ledger

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

func testEntry(id, actionID, workspaceID string, ts time.Time) domain.AuditEntry {
	return domain.AuditEntry{
		ID:            id,
		ActionID:      actionID,
		WorkspaceID:   workspaceID,
		WorkspaceName: "ml-experiments-dev",
		ActionType:    domain.ActionTypeOptimize,
		Outcome:       domain.AuditOutcomeSuccess,
		BeforeState:   domain.StateCapture{"computeUnits": 10.0, "monthlyCost": 850.0},
		AfterState:    domain.StateCapture{"computeUnits": 6.0, "monthlyCost": 510.0},
		VerificationResults: []string{
			"Compute capacity reduced",
			"Cost reflects the reduction",
		},
		Timestamp: ts,
	}
}

func TestLedgerStore_Append(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	first, err := f.store.Append(ctx, testEntry("e-1", "act-1", "ws-1", base))
	require.NoError(t, err)
	second, err := f.store.Append(ctx, testEntry("e-2", "act-2", "ws-2", base.Add(time.Minute)))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Seq)
	assert.Equal(t, int64(2), second.Seq)

	count, err := f.store.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestLedgerStore_EntryForAction(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	_, err := f.store.Append(ctx, testEntry("e-1", "act-1", "ws-1", base))
	require.NoError(t, err)

	entry, ok, err := f.store.EntryForAction(ctx, "act-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "e-1", entry.ID)
	assert.Equal(t, domain.AuditOutcomeSuccess, entry.Outcome)
	assert.Equal(t, 10.0, entry.BeforeState["computeUnits"])
	assert.Equal(t, 6.0, entry.AfterState["computeUnits"])
	assert.Len(t, entry.VerificationResults, 2)

	_, ok, err = f.store.EntryForAction(ctx, "no-such-action")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerStore_Query(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	for i, ws := range []string{"ws-1", "ws-2", "ws-1", "ws-1"} {
		_, err := f.store.Append(ctx, testEntry(
			"e-"+ws,
			"act-"+string(rune('a'+i)),
			ws,
			base.Add(time.Duration(i)*time.Hour),
		))
		require.NoError(t, err)
	}

	t.Run("filter by workspace", func(t *testing.T) {
		entries, total, err := f.store.Query(ctx, domain.AuditQuery{WorkspaceID: "ws-1"})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		assert.Len(t, entries, 3)
		for _, e := range entries {
			assert.Equal(t, "ws-1", e.WorkspaceID)
		}
	})

	t.Run("time window", func(t *testing.T) {
		entries, total, err := f.store.Query(ctx, domain.AuditQuery{
			From: base.Add(30 * time.Minute),
			To:   base.Add(2 * time.Hour),
		})
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		assert.Len(t, entries, 2)
	})

	t.Run("pagination in sequence order", func(t *testing.T) {
		page1, total, err := f.store.Query(ctx, domain.AuditQuery{Page: 1, PageSize: 3})
		require.NoError(t, err)
		assert.Equal(t, 4, total)
		require.Len(t, page1, 3)

		page2, _, err := f.store.Query(ctx, domain.AuditQuery{Page: 2, PageSize: 3})
		require.NoError(t, err)
		require.Len(t, page2, 1)
		assert.Greater(t, page2[0].Seq, page1[2].Seq)
	})
}
