package domain

import "time"

type EventType string

const (
	EventActionCreated   EventType = "actionCreated"
	EventActionApproved  EventType = "actionApproved"
	EventActionRejected  EventType = "actionRejected"
	EventActionCompleted EventType = "actionCompleted"
	EventActionFailed    EventType = "actionFailed"
)

// Event is emitted to the notification sink on action lifecycle changes.
// Delivery is at-least-once; consumers dedupe by (ActionID, Type).
type Event struct {
	Type          EventType
	ActionID      string
	WorkspaceID   string
	WorkspaceName string
	ActionType    ActionType
	Message       string
	At            time.Time
}
