package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidSnapshot marks telemetry rejected at ingestion.
	ErrInvalidSnapshot = errors.New("invalid snapshot")
	// ErrDuplicateAction marks a planning race on a (workspace, type) key;
	// the caller retries after reload.
	ErrDuplicateAction = errors.New("duplicate open action")
	// ErrInvalidTransition marks a state machine misuse; state is unchanged.
	ErrInvalidTransition = errors.New("invalid transition")
	// ErrGuardrailViolation marks an auto-approval attempt against a
	// protected workspace. Always rejected, never downgraded.
	ErrGuardrailViolation = errors.New("guardrail violation")
	// ErrExecutionFailure marks a failed remediation or verification;
	// eligible for a bounded manual retry.
	ErrExecutionFailure = errors.New("execution failure")
	// ErrLedgerWrite marks a failed audit append. The triggering transition
	// is withheld so the ledger never undercounts terminal actions.
	ErrLedgerWrite = errors.New("ledger write failure")
	// ErrRetryExhausted marks a retry attempt past the configured bound.
	ErrRetryExhausted = errors.New("retry bound exceeded")
	// ErrActionNotFound marks a lookup of an unknown action id.
	ErrActionNotFound = errors.New("action not found")
)

type InvalidSnapshotError struct {
	WorkspaceID string
	Reason      string
}

func (e *InvalidSnapshotError) Error() string {
	return fmt.Sprintf("invalid snapshot for workspace %q: %s", e.WorkspaceID, e.Reason)
}

func (e *InvalidSnapshotError) Unwrap() error { return ErrInvalidSnapshot }

type InvalidTransitionError struct {
	ActionID string
	From     ActionStatus
	Event    string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("action %s: event %q not allowed from state %s", e.ActionID, e.Event, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

type ExecutionError struct {
	ActionID     string
	FailedChecks []string
	Cause        error
}

func (e *ExecutionError) Error() string {
	if len(e.FailedChecks) > 0 {
		return fmt.Sprintf("action %s: %d verification check(s) failed: %v", e.ActionID, len(e.FailedChecks), e.FailedChecks)
	}
	return fmt.Sprintf("action %s: remediation failed: %v", e.ActionID, e.Cause)
}

func (e *ExecutionError) Unwrap() error { return ErrExecutionFailure }
