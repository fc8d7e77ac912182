// Package model defines the core domain types for the event participation
// service: events, participation requests, their state machines and the
// capacity arithmetic that links them.
package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// EventState is the lifecycle state of an event.
type EventState string

const (
	EventPending   EventState = "PENDING"
	EventPublished EventState = "PUBLISHED"
	EventCanceled  EventState = "CANCELED"
)

// ParseEventState accepts a state name in any letter case.
func ParseEventState(s string) (EventState, error) {
	switch st := EventState(strings.ToUpper(strings.TrimSpace(s))); st {
	case EventPending, EventPublished, EventCanceled:
		return st, nil
	}
	return "", Invalid("unknown event state %q", s)
}

// Event is a capacity-limited gathering created by its initiator.
type Event struct {
	ID                string     `json:"id"`
	Annotation        string     `json:"annotation"`
	CategoryID        int64      `json:"category_id"`
	Description       string     `json:"description"`
	EventDate         time.Time  `json:"event_date"`
	LocationID        int64      `json:"location_id"`
	Paid              bool       `json:"paid"`
	ParticipantLimit  int        `json:"participant_limit"`
	RequestModeration bool       `json:"request_moderation"`
	Title             string     `json:"title"`
	InitiatorID       string     `json:"initiator_id"`
	CreatedOn         time.Time  `json:"created_on"`
	PublishedOn       *time.Time `json:"published_on,omitempty"`
	State             EventState `json:"state"`
}

// Unlimited reports whether the event accepts any number of participants.
func (e *Event) Unlimited() bool {
	return e.ParticipantLimit == 0
}

// Moderated reports whether requests wait for the initiator's decision.
// Unlimited events never wait, whatever the moderation flag says.
func (e *Event) Moderated() bool {
	return !e.Unlimited() && e.RequestModeration
}

// InitialRequestStatus is the status a freshly submitted request starts in.
func (e *Event) InitialRequestStatus() RequestStatus {
	if e.Moderated() {
		return RequestPending
	}
	return RequestConfirmed
}

// NewEvent carries the fields supplied when an event is created.
type NewEvent struct {
	Annotation        string
	CategoryID        int64
	Description       string
	EventDate         time.Time
	LocationID        int64
	Paid              bool
	ParticipantLimit  int
	RequestModeration *bool
	Title             string
}

// Validate checks every field of a new event against now.
func (n NewEvent) Validate(now time.Time) error {
	if err := validateText(n.Annotation, "annotation", 20, 2000); err != nil {
		return err
	}
	if err := validateText(n.Description, "description", 20, 7000); err != nil {
		return err
	}
	if err := validateText(n.Title, "title", 3, 120); err != nil {
		return err
	}
	if n.CategoryID < 0 {
		return Invalid("category cannot be negative")
	}
	if n.LocationID < 0 {
		return Invalid("location cannot be negative")
	}
	if err := validateLimit(n.ParticipantLimit); err != nil {
		return err
	}
	return validateEventDate(n.EventDate, now)
}

// EventPatch holds optional field updates; nil means "leave as is".
type EventPatch struct {
	Annotation        *string
	CategoryID        *int64
	Description       *string
	EventDate         *time.Time
	LocationID        *int64
	Paid              *bool
	ParticipantLimit  *int
	RequestModeration *bool
	Title             *string
}

// Empty reports whether the patch changes nothing.
func (p EventPatch) Empty() bool {
	return p == EventPatch{}
}

// Validate checks only the fields that are present.
func (p EventPatch) Validate(now time.Time) error {
	if p.Annotation != nil {
		if err := validateText(*p.Annotation, "annotation", 20, 2000); err != nil {
			return err
		}
	}
	if p.Description != nil {
		if err := validateText(*p.Description, "description", 20, 7000); err != nil {
			return err
		}
	}
	if p.Title != nil {
		if err := validateText(*p.Title, "title", 3, 120); err != nil {
			return err
		}
	}
	if p.CategoryID != nil && *p.CategoryID < 0 {
		return Invalid("category cannot be negative")
	}
	if p.LocationID != nil && *p.LocationID < 0 {
		return Invalid("location cannot be negative")
	}
	if p.ParticipantLimit != nil {
		if err := validateLimit(*p.ParticipantLimit); err != nil {
			return err
		}
	}
	if p.EventDate != nil {
		return validateEventDate(*p.EventDate, now)
	}
	return nil
}

// Apply copies the present fields onto e. Call Validate first.
func (p EventPatch) Apply(e *Event) {
	if p.Annotation != nil {
		e.Annotation = *p.Annotation
	}
	if p.CategoryID != nil {
		e.CategoryID = *p.CategoryID
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	if p.EventDate != nil {
		e.EventDate = *p.EventDate
	}
	if p.LocationID != nil {
		e.LocationID = *p.LocationID
	}
	if p.Paid != nil {
		e.Paid = *p.Paid
	}
	if p.ParticipantLimit != nil {
		e.ParticipantLimit = *p.ParticipantLimit
	}
	if p.RequestModeration != nil {
		e.RequestModeration = *p.RequestModeration
	}
	if p.Title != nil {
		e.Title = *p.Title
	}
}

// EventView is an event enriched with derived counters for responses.
type EventView struct {
	Event
	ConfirmedRequests int   `json:"confirmed_requests"`
	Views             int64 `json:"views"`
}

// Available reports whether a published event still has a free slot.
func (v EventView) Available() bool {
	return v.Unlimited() || v.ConfirmedRequests < v.ParticipantLimit
}

func validateText(value, field string, minLen, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return Invalid("%s cannot be blank", field)
	}
	if n := utf8.RuneCountInString(value); n < minLen || n > maxLen {
		return Invalid("%s length must be between %d and %d", field, minLen, maxLen)
	}
	return nil
}

func validateLimit(limit int) error {
	if limit < 0 {
		return Invalid("participant limit cannot be negative")
	}
	return nil
}

func validateEventDate(date, now time.Time) error {
	if !date.After(now) {
		return Invalid("event date must be in the future")
	}
	return nil
}
