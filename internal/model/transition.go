package model

import (
	"strings"
	"time"
)

// AdminAction is a moderation decision taken by an administrator.
type AdminAction string

const (
	AdminPublish AdminAction = "PUBLISH_EVENT"
	AdminReject  AdminAction = "REJECT_EVENT"
)

// OwnerAction is a lifecycle action taken by the event initiator.
type OwnerAction string

const (
	OwnerSendToReview OwnerAction = "SEND_TO_REVIEW"
	OwnerCancel       OwnerAction = "CANCEL_REVIEW"
)

type eventTransition[A ~string] struct {
	from   EventState
	action A
}

// adminTransitions is the complete admin state machine. Anything missing is
// a conflict.
var adminTransitions = map[eventTransition[AdminAction]]EventState{
	{EventPending, AdminPublish}: EventPublished,
	{EventPending, AdminReject}:  EventCanceled,
}

// ownerTransitions never leaves or enters PUBLISHED.
var ownerTransitions = map[eventTransition[OwnerAction]]EventState{
	{EventPending, OwnerSendToReview}:  EventPending,
	{EventPending, OwnerCancel}:        EventCanceled,
	{EventCanceled, OwnerSendToReview}: EventPending,
	{EventCanceled, OwnerCancel}:       EventCanceled,
}

// ParseAdminAction accepts an action name in any letter case.
func ParseAdminAction(s string) (AdminAction, error) {
	a := AdminAction(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case AdminPublish, AdminReject:
		return a, nil
	}
	return "", Invalid("unknown admin state action %q", s)
}

// ParseOwnerAction accepts an action name in any letter case.
func ParseOwnerAction(s string) (OwnerAction, error) {
	a := OwnerAction(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case OwnerSendToReview, OwnerCancel:
		return a, nil
	}
	return "", Invalid("unknown owner state action %q", s)
}

// NextAdminState looks up the admin transition table.
func NextAdminState(from EventState, action AdminAction) (EventState, error) {
	to, ok := adminTransitions[eventTransition[AdminAction]{from, action}]
	if !ok {
		return "", IllegalTransition(string(from), string(action))
	}
	return to, nil
}

// NextOwnerState looks up the owner transition table.
func NextOwnerState(from EventState, action OwnerAction) (EventState, error) {
	if from == EventPublished {
		return "", ErrPublishedEventReadOnly
	}
	to, ok := ownerTransitions[eventTransition[OwnerAction]{from, action}]
	if !ok {
		return "", IllegalTransition(string(from), string(action))
	}
	return to, nil
}

// ApplyAdmin moves e through the admin table and keeps PublishedOn in step
// with the state.
// POST: PublishedOn != nil iff State == PUBLISHED
func (e *Event) ApplyAdmin(action AdminAction, now time.Time) error {
	to, err := NextAdminState(e.State, action)
	if err != nil {
		return err
	}
	e.setState(to, now)
	return nil
}

// ApplyOwner moves e through the owner table.
func (e *Event) ApplyOwner(action OwnerAction, now time.Time) error {
	to, err := NextOwnerState(e.State, action)
	if err != nil {
		return err
	}
	e.setState(to, now)
	return nil
}

func (e *Event) setState(to EventState, now time.Time) {
	e.State = to
	if to == EventPublished {
		t := now
		e.PublishedOn = &t
		return
	}
	e.PublishedOn = nil
}
