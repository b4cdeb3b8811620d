package execute

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/services/approval"
	"github.com/de-tools/workspace-steward/pkg/store/memory"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var engineNow = time.Date(2025, 11, 29, 12, 0, 0, 0, time.UTC)

type engineFixture struct {
	store      *memory.Store
	machine    *approval.Machine
	remediator *SimulatedRemediator
	engine     *Engine
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	store := memory.NewStore()
	machine := approval.NewMachine(store, approval.Config{
		Ledger: store,
		Now:    func() time.Time { return engineNow },
	})
	remediator := NewSimulatedRemediator()
	engine := NewEngine(store, store, machine, remediator, Config{
		Concurrency:   func() int { return 4 },
		RatePerSecond: 1000,
		Now:           func() time.Time { return engineNow },
	})
	return &engineFixture{store: store, machine: machine, remediator: remediator, engine: engine}
}

func (f *engineFixture) approvedAction(t *testing.T, workspaceID string, actionType domain.ActionType) domain.Action {
	t.Helper()
	ctx := context.Background()
	act := domain.Action{
		ID:            uuid.NewString(),
		WorkspaceID:   workspaceID,
		WorkspaceName: "analytics-dev-01",
		Type:          actionType,
		Category:      domain.CategoryDelete,
		Reason:        "No activity for 45+ days",
		Status:        domain.ActionStatusPending,
		CreatedAt:     engineNow,
		UpdatedAt:     engineNow,
	}
	require.NoError(t, f.store.CreateAction(ctx, act))
	approved, err := f.machine.Approve(ctx, act.ID, "alice")
	require.NoError(t, err)
	return approved
}

func (f *engineFixture) seed(workspaceID string) {
	f.remediator.Seed(domain.WorkspaceSnapshot{
		ID:          uuid.NewString(),
		WorkspaceID: workspaceID,
		Name:        "analytics-dev-01",
		Type:        domain.ResourceTypeStandard,
		Counts:      domain.ResourceCounts{Lakehouses: 3, Pipelines: 2, SparkJobs: 1},
		Status:      domain.WorkspaceStatusIdle,
		MonthlyCost: 850,
		CapturedAt:  engineNow,
	})
}

func TestEngine_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("delete succeeds and completes the action", func(t *testing.T) {
		f := newEngineFixture(t)
		f.seed("ws-1")
		act := f.approvedAction(t, "ws-1", domain.ActionTypeDelete)

		entry, err := f.engine.Execute(ctx, act.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.AuditOutcomeSuccess, entry.Outcome)
		assert.Equal(t, true, entry.BeforeState[StatePresent])
		assert.Equal(t, false, entry.AfterState[StatePresent])
		assert.NotEmpty(t, entry.VerificationResults)
		for _, r := range entry.VerificationResults {
			assert.NotContains(t, r, "FAILED")
		}

		got, err := f.store.GetAction(ctx, act.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionStatusCompleted, got.Status)
	})

	t.Run("optimize reduces compute and cost", func(t *testing.T) {
		f := newEngineFixture(t)
		f.seed("ws-2")
		act := f.approvedAction(t, "ws-2", domain.ActionTypeOptimize)

		entry, err := f.engine.Execute(ctx, act.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.AuditOutcomeSuccess, entry.Outcome)
		assert.Less(t,
			entry.AfterState[StateComputeUnits].(float64),
			entry.BeforeState[StateComputeUnits].(float64))
		assert.InDelta(t, 850*0.6, entry.AfterState[StateMonthlyCost].(float64), 0.01)
	})

	t.Run("failed verification marks the action Failed", func(t *testing.T) {
		f := newEngineFixture(t)
		// Workspace never seeded: the delete check for resource cleanup
		// cannot observe a before state and remediation fails.
		act := f.approvedAction(t, "ws-missing", domain.ActionTypeDelete)

		entry, err := f.engine.Execute(ctx, act.ID)
		require.Error(t, err)

		var execErr *domain.ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, act.ID, execErr.ActionID)
		assert.Equal(t, domain.AuditOutcomeFailed, entry.Outcome)

		got, err := f.store.GetAction(ctx, act.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ActionStatusFailed, got.Status)

		// The failure is still a terminal outcome and owns a ledger entry.
		_, ok, err := f.store.EntryForAction(ctx, act.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("terminal action replays the historical entry", func(t *testing.T) {
		f := newEngineFixture(t)
		f.seed("ws-3")
		act := f.approvedAction(t, "ws-3", domain.ActionTypeArchive)

		first, err := f.engine.Execute(ctx, act.ID)
		require.NoError(t, err)
		countAfterFirst, err := f.store.EntryCount(ctx)
		require.NoError(t, err)

		second, err := f.engine.Execute(ctx, act.ID)
		require.NoError(t, err)
		countAfterSecond, err := f.store.EntryCount(ctx)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, countAfterFirst, countAfterSecond)
	})

	t.Run("unknown action", func(t *testing.T) {
		f := newEngineFixture(t)
		_, err := f.engine.Execute(ctx, "no-such-action")
		assert.ErrorIs(t, err, domain.ErrActionNotFound)
	})
}

type failingLedger struct {
	inner Ledger
}

func (l *failingLedger) Append(_ context.Context, _ domain.AuditEntry) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, errors.New("ledger volume full")
}

func (l *failingLedger) EntryForAction(ctx context.Context, actionID string) (domain.AuditEntry, bool, error) {
	return l.inner.EntryForAction(ctx, actionID)
}

func TestEngine_Execute_LedgerFailureLeavesExecuting(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.seed("ws-4")
	act := f.approvedAction(t, "ws-4", domain.ActionTypeMonitor)

	engine := NewEngine(f.store, &failingLedger{inner: f.store}, f.machine, f.remediator, Config{
		RatePerSecond: 1000,
		Now:           func() time.Time { return engineNow },
	})

	_, err := engine.Execute(ctx, act.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrLedgerWrite)

	// The transition is never acknowledged without its audit record.
	got, err := f.store.GetAction(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusExecuting, got.Status)
}

// flakyLedger rejects the first append and delegates afterwards.
type flakyLedger struct {
	inner    Ledger
	attempts int32
}

func (l *flakyLedger) Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error) {
	if atomic.AddInt32(&l.attempts, 1) == 1 {
		return domain.AuditEntry{}, errors.New("ledger volume full")
	}
	return l.inner.Append(ctx, entry)
}

func (l *flakyLedger) EntryForAction(ctx context.Context, actionID string) (domain.AuditEntry, bool, error) {
	return l.inner.EntryForAction(ctx, actionID)
}

func TestEngine_Execute_ResumesAfterLedgerFailure(t *testing.T) {
	ctx := context.Background()
	f := newEngineFixture(t)
	f.seed("ws-5")
	act := f.approvedAction(t, "ws-5", domain.ActionTypeArchive)

	engine := NewEngine(f.store, &flakyLedger{inner: f.store}, f.machine, f.remediator, Config{
		RatePerSecond: 1000,
		Now:           func() time.Time { return engineNow },
	})

	_, err := engine.Execute(ctx, act.ID)
	require.ErrorIs(t, err, domain.ErrLedgerWrite)

	got, err := f.store.GetAction(ctx, act.ID)
	require.NoError(t, err)
	require.Equal(t, domain.ActionStatusExecuting, got.Status)

	// A retry picks up the stranded run and drives it to a terminal state
	// instead of attempting a second claim on the executing slot.
	entry, err := engine.Execute(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AuditOutcomeSuccess, entry.Outcome)

	got, err = f.store.GetAction(ctx, act.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ActionStatusCompleted, got.Status)

	count, err := f.store.EntryCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

// overlapRemediator counts per-workspace in-flight remediations to detect
// two executions holding the same workspace at once.
type overlapRemediator struct {
	*SimulatedRemediator
	mu       sync.Mutex
	inFlight map[string]int
	overlaps int32
}

func (r *overlapRemediator) Remediate(ctx context.Context, action domain.Action) error {
	r.mu.Lock()
	r.inFlight[action.WorkspaceID]++
	if r.inFlight[action.WorkspaceID] > 1 {
		atomic.AddInt32(&r.overlaps, 1)
	}
	r.mu.Unlock()

	time.Sleep(10 * time.Millisecond)

	r.mu.Lock()
	r.inFlight[action.WorkspaceID]--
	r.mu.Unlock()

	return r.SimulatedRemediator.Remediate(ctx, action)
}

func TestEngine_DispatchApproved(t *testing.T) {
	ctx := context.Background()

	t.Run("executes every approved action", func(t *testing.T) {
		f := newEngineFixture(t)
		f.seed("ws-a")
		f.seed("ws-b")
		actA := f.approvedAction(t, "ws-a", domain.ActionTypeArchive)
		actB := f.approvedAction(t, "ws-b", domain.ActionTypeMonitor)

		dispatched, err := f.engine.DispatchApproved(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, dispatched)

		for _, id := range []string{actA.ID, actB.ID} {
			got, err := f.store.GetAction(ctx, id)
			require.NoError(t, err)
			assert.Equal(t, domain.ActionStatusCompleted, got.Status)
		}
	})

	t.Run("serializes actions against the same workspace", func(t *testing.T) {
		f := newEngineFixture(t)
		f.seed("ws-c")
		rem := &overlapRemediator{
			SimulatedRemediator: f.remediator,
			inFlight:            make(map[string]int),
		}
		engine := NewEngine(f.store, f.store, f.machine, rem, Config{
			Concurrency:   func() int { return 4 },
			RatePerSecond: 1000,
			Now:           func() time.Time { return engineNow },
		})

		f.approvedAction(t, "ws-c", domain.ActionTypeOptimize)
		f.approvedAction(t, "ws-c", domain.ActionTypeMonitor)

		dispatched, err := engine.DispatchApproved(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, dispatched)
		assert.Zero(t, atomic.LoadInt32(&rem.overlaps))
	})
}
