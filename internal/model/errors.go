package model

import (
	"errors"
	"fmt"
)

// Error kinds. Every business error returned by the service layer wraps exactly
// one of these, so the HTTP boundary can pick a status code with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrValidation = errors.New("validation error")

	// ErrTransient marks storage contention (lock wait timeout, deadlock,
	// serialization failure). It is the only kind eligible for retry.
	ErrTransient = errors.New("transient storage error")
)

var (
	ErrEventNotFound   = fmt.Errorf("%w: event not found", ErrNotFound)
	ErrRequestNotFound = fmt.Errorf("%w: request not found", ErrNotFound)
)

var (
	ErrNotInitiator = fmt.Errorf("%w: user is not the initiator of the event", ErrForbidden)
)

var (
	ErrEventNotPublished      = fmt.Errorf("%w: cannot participate in an unpublished event", ErrConflict)
	ErrInitiatorRequest       = fmt.Errorf("%w: initiator cannot request participation in own event", ErrConflict)
	ErrAlreadyRequested       = fmt.Errorf("%w: participation request already exists", ErrConflict)
	ErrParticipantLimit       = fmt.Errorf("%w: participant limit has been reached", ErrConflict)
	ErrModerationNotRequired  = fmt.Errorf("%w: this event does not require moderation", ErrConflict)
	ErrRequestNotPending      = fmt.Errorf("%w: only pending requests may change status", ErrConflict)
	ErrPublishedEventReadOnly = fmt.Errorf("%w: only pending or canceled events can be changed", ErrConflict)
	ErrLimitBelowConfirmed    = fmt.Errorf("%w: participant limit is below the confirmed count", ErrConflict)
)

// IllegalTransition reports a (state, action) pair missing from a transition table.
func IllegalTransition(from, action string) error {
	return fmt.Errorf("%w: cannot apply %s to %s", ErrConflict, action, from)
}

// Invalid builds a validation error for a single field.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
