package execute

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/de-tools/workspace-steward/pkg/models/domain"
	"github.com/de-tools/workspace-steward/pkg/observability"
	"github.com/de-tools/workspace-steward/pkg/services/approval"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const actorExecutor = "system:executor"

// ActionStore is the read surface of the action store the engine needs.
type ActionStore interface {
	GetAction(ctx context.Context, id string) (domain.Action, error)
	ListActions(ctx context.Context, status domain.ActionStatus) ([]domain.Action, error)
}

// Ledger is the audit ledger surface the engine needs: appends for
// execution outcomes and lookups for idempotent replay.
type Ledger interface {
	Append(ctx context.Context, entry domain.AuditEntry) (domain.AuditEntry, error)
	EntryForAction(ctx context.Context, actionID string) (domain.AuditEntry, bool, error)
}

type Config struct {
	// Concurrency returns the current worker bound for dispatch; read per
	// dispatch so configuration reloads take effect without a restart.
	Concurrency func() int
	// RatePerSecond throttles remediation calls to respect downstream API
	// limits.
	RatePerSecond float64
	Now           func() time.Time
}

// Engine executes approved actions: it claims the Executing slot through
// the state machine, captures before/after state around the remediation,
// runs the verification checks and appends the audit entry before the
// terminal transition is acknowledged.
type Engine struct {
	actions    ActionStore
	ledger     Ledger
	machine    *approval.Machine
	remediator Remediator
	limiter    *rate.Limiter

	concurrency func() int
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewEngine(
	actions ActionStore,
	ledger Ledger,
	machine *approval.Machine,
	remediator Remediator,
	cfg Config,
) *Engine {
	if cfg.Concurrency == nil {
		cfg.Concurrency = func() int { return 2 }
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = 5
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Engine{
		actions:     actions,
		ledger:      ledger,
		machine:     machine,
		remediator:  remediator,
		limiter:     rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1),
		concurrency: cfg.Concurrency,
		now:         cfg.Now,
		locks:       make(map[string]*sync.Mutex),
	}
}

// UpdateRate applies a new downstream rate limit without disturbing
// in-flight executions.
func (e *Engine) UpdateRate(perSecond float64) {
	if perSecond > 0 {
		e.limiter.SetLimit(rate.Limit(perSecond))
	}
}

// lockFor returns the mutual-exclusion token for a workspace. No two
// actions execute against the same workspace simultaneously; different
// workspaces proceed in parallel.
func (e *Engine) lockFor(workspaceID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.locks[workspaceID]
	if !ok {
		l = &sync.Mutex{}
		e.locks[workspaceID] = l
	}
	return l
}

// settle drives an Executing action to the terminal state its ledger entry
// already records.
func (e *Engine) settle(ctx context.Context, actionID string, entry domain.AuditEntry) error {
	if entry.Outcome == domain.AuditOutcomeSuccess {
		if _, err := e.machine.Complete(ctx, actionID, actorExecutor); err != nil {
			return err
		}
		observability.Executions.WithLabelValues("success").Inc()
		return nil
	}
	if _, err := e.machine.Fail(ctx, actionID, actorExecutor); err != nil {
		return err
	}
	observability.Executions.WithLabelValues("failed").Inc()
	return nil
}

// historicalEntry returns the ledger entry recorded for a completed action.
func (e *Engine) historicalEntry(ctx context.Context, actionID string) (domain.AuditEntry, error) {
	entry, ok, err := e.ledger.EntryForAction(ctx, actionID)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	if !ok {
		return domain.AuditEntry{}, fmt.Errorf("terminal action %s has no ledger entry", actionID)
	}
	return entry, nil
}

// Execute runs a single approved action to a terminal state. Invoking it
// on an already-terminal action is a no-op returning the historical audit
// entry.
func (e *Engine) Execute(ctx context.Context, actionID string) (domain.AuditEntry, error) {
	act, err := e.actions.GetAction(ctx, actionID)
	if err != nil {
		return domain.AuditEntry{}, err
	}

	if act.Status.Terminal() {
		return e.historicalEntry(ctx, actionID)
	}

	lock := e.lockFor(act.WorkspaceID)
	lock.Lock()
	defer lock.Unlock()

	// Re-read under the lock: a concurrent executor may have driven the
	// action to a terminal state while we waited.
	act, err = e.actions.GetAction(ctx, actionID)
	if err != nil {
		return domain.AuditEntry{}, err
	}
	if act.Status.Terminal() {
		return e.historicalEntry(ctx, actionID)
	}

	// An action already in Executing is a stranded run: a previous attempt
	// claimed the slot but never reached a terminal state (append failure,
	// a cancelled throttle wait, or a crash between append and transition).
	// Resume it instead of claiming again.
	if act.Status == domain.ActionStatusExecuting {
		entry, ok, err := e.ledger.EntryForAction(ctx, actionID)
		if err != nil {
			return domain.AuditEntry{}, err
		}
		if ok {
			// The record already landed, only the terminal transition is
			// outstanding. Finish it without re-running the remediation.
			return entry, e.settle(ctx, act.ID, entry)
		}
	} else {
		act, err = e.machine.Begin(ctx, actionID, actorExecutor)
		if err != nil {
			return domain.AuditEntry{}, err
		}
	}

	if err := e.limiter.Wait(ctx); err != nil {
		// Cancelled while throttled: the action stays Executing and must
		// be driven to a terminal state by a retry of the executor.
		return domain.AuditEntry{}, fmt.Errorf("rate limit wait for action %s: %w", actionID, err)
	}

	started := e.now()
	before, captureErr := e.remediator.CaptureState(ctx, act)
	if before == nil {
		before = domain.StateCapture{}
	}

	var remErr error
	if captureErr != nil {
		remErr = fmt.Errorf("capture state before remediation: %w", captureErr)
	} else {
		remErr = e.remediator.Remediate(ctx, act)
	}

	after, afterErr := e.remediator.CaptureState(ctx, act)
	if after == nil {
		after = domain.StateCapture{}
	}
	if remErr == nil && afterErr != nil {
		remErr = fmt.Errorf("capture state after remediation: %w", afterErr)
	}

	var results, failedChecks []string
	if remErr == nil {
		results, failedChecks = runChecks(act.Type, before, after)
	} else {
		results = []string{fmt.Sprintf("FAILED: remediation call: %v", remErr)}
	}

	outcome := domain.AuditOutcomeSuccess
	if remErr != nil || len(failedChecks) > 0 {
		outcome = domain.AuditOutcomeFailed
	}

	entry := domain.AuditEntry{
		ID:                  uuid.NewString(),
		ActionID:            act.ID,
		WorkspaceID:         act.WorkspaceID,
		WorkspaceName:       act.WorkspaceName,
		ActionType:          act.Type,
		Outcome:             outcome,
		BeforeState:         before,
		AfterState:          after,
		VerificationResults: results,
		Timestamp:           e.now(),
	}

	// Write-before-acknowledge: the ledger append lands before the
	// terminal transition. On append failure the action is left in
	// Executing so a retry can complete the record.
	appended, err := e.ledger.Append(ctx, entry)
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("audit entry for action %s: %w (%v)",
			act.ID, domain.ErrLedgerWrite, err)
	}
	observability.LedgerEntries.Inc()

	if outcome == domain.AuditOutcomeSuccess {
		if _, err := e.machine.Complete(ctx, act.ID, actorExecutor); err != nil {
			return appended, err
		}
		observability.Executions.WithLabelValues("success").Inc()
		observability.ExecutionDuration.Observe(e.now().Sub(started).Seconds())
		return appended, nil
	}

	if _, err := e.machine.Fail(ctx, act.ID, actorExecutor); err != nil {
		return appended, err
	}
	observability.Executions.WithLabelValues("failed").Inc()
	observability.ExecutionDuration.Observe(e.now().Sub(started).Seconds())

	return appended, &domain.ExecutionError{ActionID: act.ID, FailedChecks: failedChecks, Cause: remErr}
}

// DispatchApproved executes every approved action, different workspaces in
// parallel up to the configured worker bound. Individual failures are
// recorded in the ledger and logged; dispatch itself only fails on listing.
func (e *Engine) DispatchApproved(ctx context.Context) (int, error) {
	approved, err := e.actions.ListActions(ctx, domain.ActionStatusApproved)
	if err != nil {
		return 0, fmt.Errorf("list approved actions: %w", err)
	}

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency())

	for _, act := range approved {
		g.Go(func() error {
			if _, err := e.Execute(ctx, act.ID); err != nil {
				zerolog.Ctx(ctx).Error().
					Err(err).
					Str("action_id", act.ID).
					Str("workspace", act.WorkspaceName).
					Msg("action execution failed")
			}
			return nil
		})
	}
	_ = g.Wait()

	return len(approved), nil
}
