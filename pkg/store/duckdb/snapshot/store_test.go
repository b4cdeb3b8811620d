package snapshot

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

func testSnapshot(id, workspaceID, name string, capturedAt time.Time) domain.WorkspaceSnapshot {
	return domain.WorkspaceSnapshot{
		ID:             id,
		WorkspaceID:    workspaceID,
		Name:           name,
		Type:           domain.ResourceTypeStandard,
		Counts:         domain.ResourceCounts{Lakehouses: 3, Pipelines: 2, SparkJobs: 1},
		LastActivityAt: capturedAt.Add(-20 * 24 * time.Hour),
		Status:         domain.WorkspaceStatusIdle,
		MonthlyCost:    850,
		CapturedAt:     capturedAt,
	}
}

func TestSnapshotStore_Snapshots(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.AppendSnapshot(ctx, testSnapshot("s-1", "ws-1", "ml-experiments-dev", base)))
	require.NoError(t, f.store.AppendSnapshot(ctx, testSnapshot("s-2", "ws-1", "ml-experiments-dev", base.Add(time.Hour))))
	require.NoError(t, f.store.AppendSnapshot(ctx, testSnapshot("s-3", "ws-2", "customer-insights", base)))

	t.Run("latest returns one per workspace sorted by name", func(t *testing.T) {
		latest, err := f.store.LatestSnapshots(ctx)
		require.NoError(t, err)
		require.Len(t, latest, 2)

		assert.Equal(t, "customer-insights", latest[0].Name)
		assert.Equal(t, "s-3", latest[0].ID)
		assert.Equal(t, "ml-experiments-dev", latest[1].Name)
		assert.Equal(t, "s-2", latest[1].ID)
		assert.Equal(t, 3, latest[1].Counts.Lakehouses)
		assert.Equal(t, 850.0, latest[1].MonthlyCost)
	})

	t.Run("history is retained in capture order", func(t *testing.T) {
		history, err := f.store.SnapshotHistory(ctx, "ws-1")
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, "s-1", history[0].ID)
		assert.Equal(t, "s-2", history[1].ID)
	})

	t.Run("unknown workspace has empty history", func(t *testing.T) {
		history, err := f.store.SnapshotHistory(ctx, "no-such-ws")
		require.NoError(t, err)
		assert.Empty(t, history)
	})
}

func TestSnapshotStore_Classifications(t *testing.T) {
	f := setupFixture(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

	require.NoError(t, f.store.AppendClassification(ctx, domain.Classification{
		ID:          "c-1",
		WorkspaceID: "ws-1",
		SnapshotID:  "s-1",
		Label:       domain.ClassificationReview,
		Rule:        "idle_review",
		Rationale:   "Idle workspace with declining usage",
		IdleDays:    20,
		CreatedAt:   base,
	}))
	require.NoError(t, f.store.AppendClassification(ctx, domain.Classification{
		ID:          "c-2",
		WorkspaceID: "ws-1",
		SnapshotID:  "s-2",
		Label:       domain.ClassificationKeep,
		Rule:        "healthy",
		Rationale:   "Active workspace with healthy usage patterns",
		IdleDays:    0,
		CreatedAt:   base.Add(time.Hour),
	}))

	latest, ok, err := f.store.LatestClassification(ctx, "ws-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "c-2", latest.ID)
	assert.Equal(t, domain.ClassificationKeep, latest.Label)

	_, ok, err = f.store.LatestClassification(ctx, "no-such-ws")
	require.NoError(t, err)
	assert.False(t, ok)
}
