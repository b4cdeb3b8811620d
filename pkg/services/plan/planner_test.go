package plan

import (
	"context"
	"testing"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockActionStore struct{ mock.Mock }

func (m *mockActionStore) OpenActionExists(
	ctx context.Context,
	workspaceID string,
	actionType domain.ActionType,
) (bool, error) {
	args := m.Called(ctx, workspaceID, actionType)
	return args.Bool(0), args.Error(1)
}

func (m *mockActionStore) CreateAction(ctx context.Context, action domain.Action) error {
	args := m.Called(ctx, action)
	return args.Error(0)
}

type captureSink struct {
	events []domain.Event
}

func (s *captureSink) Publish(_ context.Context, event domain.Event) error {
	s.events = append(s.events, event)
	return nil
}

var planNow = time.Date(2025, 11, 29, 10, 0, 0, 0, time.UTC)

func classification(label domain.ClassificationLabel, rationale string) domain.Classification {
	return domain.Classification{
		ID:          "cls-1",
		WorkspaceID: "ws-4",
		SnapshotID:  "snap-4",
		Label:       label,
		Rationale:   rationale,
	}
}

func trialSnapshot() domain.WorkspaceSnapshot {
	return domain.WorkspaceSnapshot{
		ID:          "snap-4",
		WorkspaceID: "ws-4",
		Name:        "Temp Project Q3",
		Type:        domain.ResourceTypeTrial,
		Counts:      domain.ResourceCounts{Lakehouses: 0, Pipelines: 2},
		Status:      domain.WorkspaceStatusIdle,
		MonthlyCost: 200,
	}
}

func TestPropose_Mapping(t *testing.T) {
	t.Run("decommissioned trial with zero lakehouses deletes", func(t *testing.T) {
		action, ok := Propose(classification(domain.ClassificationDecommission, "trial expired"), trialSnapshot())
		require.True(t, ok)
		assert.Equal(t, domain.ActionTypeDelete, action.Type)
		assert.Equal(t, domain.CategoryDelete, action.Category)
		assert.Equal(t, "trial expired", action.Reason)
	})

	t.Run("decommissioned workspace with lakehouses archives", func(t *testing.T) {
		snap := trialSnapshot()
		snap.Counts.Lakehouses = 1
		action, ok := Propose(classification(domain.ClassificationDecommission, "poc done"), snap)
		require.True(t, ok)
		assert.Equal(t, domain.ActionTypeArchive, action.Type)
		assert.Equal(t, domain.CategoryArchive, action.Category)
	})

	t.Run("idle review optimizes with savings estimate", func(t *testing.T) {
		snap := trialSnapshot()
		snap.Type = domain.ResourceTypeStandard
		snap.MonthlyCost = 850
		action, ok := Propose(classification(domain.ClassificationReview, "low utilization"), snap)
		require.True(t, ok)
		assert.Equal(t, domain.ActionTypeOptimize, action.Type)
		assert.Equal(t, domain.CategoryOptimize, action.Category)
		assert.Contains(t, action.Impact, "$340/month")
	})

	t.Run("non-idle review monitors", func(t *testing.T) {
		snap := trialSnapshot()
		snap.Status = domain.WorkspaceStatusWarning
		action, ok := Propose(classification(domain.ClassificationReview, "irregular usage"), snap)
		require.True(t, ok)
		assert.Equal(t, domain.ActionTypeMonitor, action.Type)
		assert.Equal(t, domain.CategoryMonitor, action.Category)
	})

	t.Run("keep produces nothing", func(t *testing.T) {
		_, ok := Propose(classification(domain.ClassificationKeep, "healthy"), trialSnapshot())
		assert.False(t, ok)
	})
}

func TestPlanner_Plan_PersistsAndNotifies(t *testing.T) {
	ctx := context.Background()
	store := new(mockActionStore)
	sink := &captureSink{}
	planner := NewPlanner(store, sink, func() time.Time { return planNow })

	store.On("OpenActionExists", mock.Anything, "ws-4", domain.ActionTypeDelete).Return(false, nil)
	store.On("CreateAction", mock.Anything, mock.MatchedBy(func(a domain.Action) bool {
		return a.Type == domain.ActionTypeDelete &&
			a.Status == domain.ActionStatusPending &&
			a.ID != "" &&
			a.CreatedAt.Equal(planNow)
	})).Return(nil)

	action, err := planner.Plan(ctx, classification(domain.ClassificationDecommission, "trial expired"), trialSnapshot())
	require.NoError(t, err)
	require.NotNil(t, action)

	require.Len(t, sink.events, 1)
	assert.Equal(t, domain.EventActionCreated, sink.events[0].Type)
	assert.Equal(t, action.ID, sink.events[0].ActionID)
	store.AssertExpectations(t)
}

func TestPlanner_Plan_IdempotentOnOpenAction(t *testing.T) {
	ctx := context.Background()
	store := new(mockActionStore)
	sink := &captureSink{}
	planner := NewPlanner(store, sink, func() time.Time { return planNow })

	store.On("OpenActionExists", mock.Anything, "ws-4", domain.ActionTypeDelete).Return(true, nil)

	action, err := planner.Plan(ctx, classification(domain.ClassificationDecommission, "trial expired"), trialSnapshot())
	require.NoError(t, err)
	assert.Nil(t, action)
	assert.Empty(t, sink.events)
	store.AssertNotCalled(t, "CreateAction", mock.Anything, mock.Anything)
}

func TestPlanner_Plan_SurfacesPlanningRace(t *testing.T) {
	ctx := context.Background()
	store := new(mockActionStore)
	planner := NewPlanner(store, &captureSink{}, func() time.Time { return planNow })

	store.On("OpenActionExists", mock.Anything, "ws-4", domain.ActionTypeDelete).Return(false, nil)
	store.On("CreateAction", mock.Anything, mock.Anything).Return(domain.ErrDuplicateAction)

	_, err := planner.Plan(ctx, classification(domain.ClassificationDecommission, "trial expired"), trialSnapshot())
	assert.ErrorIs(t, err, domain.ErrDuplicateAction)
}
