package approval

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/observability"
	"github.com/de-tools/workspace-steward/pkg/services/notify"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Ledger is the append surface of the audit ledger. Every terminal
// transition produces exactly one entry; for rejections and cancellations
// the machine writes it, for execution outcomes the execution engine does.
type Ledger interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
}

const (
	EventApprove = "approve"
	EventReject  = "reject"
	EventCancel  = "cancel"
	EventExecute = "execute"
	EventSucceed = "succeed"
	EventFail    = "fail"
	EventRetry   = "retry"
)

// ActorAutoApproval identifies transitions driven by the auto-approval
// policy rather than a human operator.
const ActorAutoApproval = "system:auto-approval"

// Store is the slice of the action store the state machine needs. The CAS
// update is what makes concurrent transitions linearizable: of two racing
// callers exactly one observes the expected `from` state.
type Store interface {
	GetAction(ctx context.Context, id string) (domain.Action, error)
	// UpdateStatusCAS atomically moves the action from -> to and returns
	// the updated action. It returns domain.ErrInvalidTransition when the
	// current status is not `from`. incrementRetry bumps RetryCount in the
	// same update.
	UpdateStatusCAS(ctx context.Context, id string, from, to domain.ActionStatus, incrementRetry bool) (domain.Action, error)
	AppendTransition(ctx context.Context, t domain.Transition) error
}

type transitionRule struct {
	event string
	from  domain.ActionStatus
	to    domain.ActionStatus
}

// transitionTable is the full set of legal transitions. Anything outside it
// fails with InvalidTransition and leaves state unchanged.
var transitionTable = []transitionRule{
	{EventApprove, domain.ActionStatusPending, domain.ActionStatusApproved},
	{EventReject, domain.ActionStatusPending, domain.ActionStatusRejected},
	{EventCancel, domain.ActionStatusPending, domain.ActionStatusRejected},
	{EventCancel, domain.ActionStatusApproved, domain.ActionStatusRejected},
	{EventExecute, domain.ActionStatusApproved, domain.ActionStatusExecuting},
	{EventSucceed, domain.ActionStatusExecuting, domain.ActionStatusCompleted},
	{EventFail, domain.ActionStatusExecuting, domain.ActionStatusFailed},
	{EventRetry, domain.ActionStatusFailed, domain.ActionStatusApproved},
}

func findRule(event string, from domain.ActionStatus) (transitionRule, bool) {
	for _, r := range transitionTable {
		if r.event == event && r.from == from {
			return r, true
		}
	}
	return transitionRule{}, false
}

// Machine drives actions through the approval state machine. Every
// transition attempt returns either the updated action or a typed failure;
// nothing is silently dropped.
type Machine struct {
	store      Store
	ledger     Ledger
	sink       notify.Sink
	protected  func(workspaceName string) bool
	retryLimit func() int
	now        func() time.Time
}

type Config struct {
	// Protected reports whether a workspace name matches a guardrail
	// pattern; nil means nothing is protected.
	Protected func(workspaceName string) bool
	// RetryLimit returns the current retry bound; read per transition so
	// configuration reloads apply to in-flight actions.
	RetryLimit func() int
	// Ledger receives the audit entry for rejected and cancelled actions;
	// nil disables the write (tests exercising the machine alone).
	Ledger Ledger
	Sink   notify.Sink
	Now    func() time.Time
}

func NewMachine(store Store, cfg Config) *Machine {
	if cfg.Sink == nil {
		cfg.Sink = notify.NewLogSink()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.RetryLimit == nil {
		cfg.RetryLimit = func() int { return 3 }
	}
	return &Machine{
		store:      store,
		ledger:     cfg.Ledger,
		sink:       cfg.Sink,
		protected:  cfg.Protected,
		retryLimit: cfg.RetryLimit,
		now:        cfg.Now,
	}
}

func (m *Machine) Approve(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventApprove, actor)
}

func (m *Machine) Reject(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventReject, actor)
}

// Cancel withdraws a Pending or Approved action before execution starts.
// Cancellation after Executing begins is not supported; the action runs to
// Completed or Failed.
func (m *Machine) Cancel(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventCancel, actor)
}

// Retry re-enters Approved from Failed, bounded by the configured retry
// limit.
func (m *Machine) Retry(ctx context.Context, id, actor string) (domain.Action, error) {
	act, err := m.store.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if limit := m.retryLimit(); act.RetryCount >= limit {
		return domain.Action{}, fmt.Errorf("action %s: %d of %d retries used: %w",
			id, act.RetryCount, limit, domain.ErrRetryExhausted)
	}
	return m.transition(ctx, id, EventRetry, actor)
}

// AutoApprove applies the auto-approval policy to an action. Protected
// workspaces always require a human decision: the attempt fails with
// GuardrailViolation and is never downgraded to a silent skip.
func (m *Machine) AutoApprove(ctx context.Context, id string) (domain.Action, error) {
	act, err := m.store.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}
	if m.protected != nil && m.protected(act.WorkspaceName) {
		return domain.Action{}, fmt.Errorf(
			"auto-approve of action %s against protected workspace %q: %w",
			id, act.WorkspaceName, domain.ErrGuardrailViolation)
	}
	return m.transition(ctx, id, EventApprove, ActorAutoApproval)
}

// Begin claims the exclusive execution slot (Approved -> Executing). The CAS
// is the transition lock: a second executor loses with InvalidTransition.
func (m *Machine) Begin(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventExecute, actor)
}

// Complete marks a verified execution (Executing -> Completed). The caller
// must have appended the audit entry first.
func (m *Machine) Complete(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventSucceed, actor)
}

// Fail marks a failed execution (Executing -> Failed). The caller must have
// appended the audit entry first.
func (m *Machine) Fail(ctx context.Context, id, actor string) (domain.Action, error) {
	return m.transition(ctx, id, EventFail, actor)
}

func (m *Machine) transition(ctx context.Context, id, event, actor string) (domain.Action, error) {
	act, err := m.store.GetAction(ctx, id)
	if err != nil {
		return domain.Action{}, err
	}

	rule, ok := findRule(event, act.Status)
	if !ok {
		observability.InvalidTransitions.Inc()
		return domain.Action{}, &domain.InvalidTransitionError{ActionID: id, From: act.Status, Event: event}
	}

	updated, err := m.store.UpdateStatusCAS(ctx, id, rule.from, rule.to, event == EventRetry)
	if errors.Is(err, domain.ErrInvalidTransition) {
		// Lost the race: report against the state the winner left behind.
		observability.InvalidTransitions.Inc()
		current, getErr := m.store.GetAction(ctx, id)
		if getErr != nil {
			return domain.Action{}, getErr
		}
		return domain.Action{}, &domain.InvalidTransitionError{ActionID: id, From: current.Status, Event: event}
	}
	if err != nil {
		return domain.Action{}, fmt.Errorf("transition %s on action %s: %w", event, id, err)
	}

	// Rejection is a terminal transition, so it owes the ledger an entry.
	// The write must land before the transition is acknowledged; if it
	// fails the transition is rolled back (safe: the terminal state is
	// exclusive, nothing else can have moved the action meanwhile).
	if (event == EventReject || event == EventCancel) && m.ledger != nil {
		entry := domain.AuditEntry{
			ID:                  uuid.NewString(),
			ActionID:            updated.ID,
			WorkspaceID:         updated.WorkspaceID,
			WorkspaceName:       updated.WorkspaceName,
			ActionType:          updated.Type,
			Outcome:             domain.AuditOutcomePending,
			BeforeState:         domain.StateCapture{},
			AfterState:          domain.StateCapture{},
			VerificationResults: []string{"Action rejected before execution, no changes applied"},
			Timestamp:           m.now(),
		}
		if _, err := m.ledger.Append(ctx, entry); err != nil {
			if _, rbErr := m.store.UpdateStatusCAS(ctx, id, rule.to, rule.from, false); rbErr != nil {
				zerolog.Ctx(ctx).Error().
					Err(rbErr).
					Str("action_id", id).
					Msg("rollback after ledger write failure also failed")
			}
			return domain.Action{}, fmt.Errorf("audit entry for %s of action %s: %w (%v)",
				event, id, domain.ErrLedgerWrite, err)
		}
		observability.LedgerEntries.Inc()
	}

	t := domain.Transition{
		ActionID: id,
		Event:    event,
		From:     rule.from,
		To:       rule.to,
		Actor:    actor,
		At:       m.now(),
	}
	if err := m.store.AppendTransition(ctx, t); err != nil {
		// The status change already landed, so the transition stands with a
		// gap in its history. Count the gap so it is visible on a dashboard.
		observability.TransitionRecordFailures.Inc()
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("action_id", id).
			Str("event", event).
			Msg("failed to record transition")
	}

	observability.Transitions.WithLabelValues(event, string(rule.to)).Inc()
	m.publish(ctx, updated, event)

	return updated, nil
}

func (m *Machine) publish(ctx context.Context, act domain.Action, event string) {
	var eventType domain.EventType
	var msg string
	switch event {
	case EventApprove, EventRetry:
		eventType = domain.EventActionApproved
		msg = fmt.Sprintf("Action approved: %s %s", act.Type, act.WorkspaceName)
	case EventReject, EventCancel:
		eventType = domain.EventActionRejected
		msg = fmt.Sprintf("Action rejected: %s %s", act.Type, act.WorkspaceName)
	case EventSucceed:
		eventType = domain.EventActionCompleted
		msg = fmt.Sprintf("Action completed: %s %s", act.Type, act.WorkspaceName)
	case EventFail:
		eventType = domain.EventActionFailed
		msg = fmt.Sprintf("Action failed: %s %s", act.Type, act.WorkspaceName)
	default:
		return
	}

	err := m.sink.Publish(ctx, domain.Event{
		Type:          eventType,
		ActionID:      act.ID,
		WorkspaceID:   act.WorkspaceID,
		WorkspaceName: act.WorkspaceName,
		ActionType:    act.Type,
		Message:       msg,
		At:            m.now(),
	})
	if err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Str("action_id", act.ID).
			Str("event", string(eventType)).
			Msg("failed to publish action event")
	}
}
