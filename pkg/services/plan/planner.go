package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/observability"
	"github.com/de-tools/workspace-steward/pkg/services/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ActionStore is the slice of the action store the planner needs.
type ActionStore interface {
	// OpenActionExists reports whether a non-terminal action of the given
	// type already occupies the workspace slot.
	OpenActionExists(ctx context.Context, workspaceID string, actionType domain.ActionType) (bool, error)
	// CreateAction persists a new action. It returns
	// domain.ErrDuplicateAction when an open action of the same type
	// already exists for the workspace (concurrent planning race).
	CreateAction(ctx context.Context, action domain.Action) error
}

// Planner converts classifications into remediation actions. Planning is
// idempotent: re-running it on an unchanged snapshot is a no-op for
// already-planned work.
type Planner struct {
	store ActionStore
	sink  notify.Sink
	now   func() time.Time
}

func NewPlanner(store ActionStore, sink notify.Sink, now func() time.Time) *Planner {
	if sink == nil {
		sink = notify.NewLogSink()
	}
	if now == nil {
		now = time.Now
	}
	return &Planner{store: store, sink: sink, now: now}
}

// Propose derives the action for a classification without side effects.
// The second return is false when the classification calls for no action.
func Propose(c domain.Classification, snap domain.WorkspaceSnapshot) (domain.Action, bool) {
	action := domain.Action{
		WorkspaceID:   snap.WorkspaceID,
		WorkspaceName: snap.Name,
		Reason:        c.Rationale,
		Status:        domain.ActionStatusPending,
	}

	switch c.Label {
	case domain.ClassificationDecommission:
		if snap.Type == domain.ResourceTypeTrial && snap.Counts.Lakehouses == 0 {
			action.Type = domain.ActionTypeDelete
			action.Category = domain.CategoryDelete
			action.Impact = "Workspace and all resources will be permanently removed"
		} else {
			action.Type = domain.ActionTypeArchive
			action.Category = domain.CategoryArchive
			action.Impact = "Workspace will be archived, can be restored if needed"
		}
	case domain.ClassificationReview:
		if snap.Status == domain.WorkspaceStatusIdle {
			action.Type = domain.ActionTypeOptimize
			action.Category = domain.CategoryOptimize
			action.Impact = fmt.Sprintf(
				"Reduce compute capacity by 40%%, estimated savings $%.0f/month",
				snap.MonthlyCost*0.4,
			)
		} else {
			action.Type = domain.ActionTypeMonitor
			action.Category = domain.CategoryMonitor
			action.Impact = "Enhanced monitoring for 30 days"
		}
	default:
		// Keep: healthy workspaces get no action, not even Monitor.
		return domain.Action{}, false
	}

	return action, true
}

// Plan persists the action implied by c, if any. It returns nil when the
// classification requires no action or an open action of the same type
// already exists for the workspace.
func (p *Planner) Plan(
	ctx context.Context,
	c domain.Classification,
	snap domain.WorkspaceSnapshot,
) (*domain.Action, error) {
	action, ok := Propose(c, snap)
	if !ok {
		return nil, nil
	}

	exists, err := p.store.OpenActionExists(ctx, action.WorkspaceID, action.Type)
	if err != nil {
		return nil, fmt.Errorf("check open actions for %s: %w", action.WorkspaceID, err)
	}
	if exists {
		zerolog.Ctx(ctx).Debug().
			Str("workspace", action.WorkspaceID).
			Str("action_type", string(action.Type)).
			Msg("open action already planned, skipping")
		return nil, nil
	}

	now := p.now()
	action.ID = uuid.NewString()
	action.CreatedAt = now
	action.UpdatedAt = now

	if err := p.store.CreateAction(ctx, action); err != nil {
		return nil, err
	}

	observability.ActionsPlanned.WithLabelValues(string(action.Type)).Inc()

	event := domain.Event{
		Type:          domain.EventActionCreated,
		ActionID:      action.ID,
		WorkspaceID:   action.WorkspaceID,
		WorkspaceName: action.WorkspaceName,
		ActionType:    action.Type,
		Message:       fmt.Sprintf("Action created: %s %s", action.Type, action.WorkspaceName),
		At:            now,
	}
	if err := p.sink.Publish(ctx, event); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("action_id", action.ID).Msg("failed to publish actionCreated")
	}

	return &action, nil
}
