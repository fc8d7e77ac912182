package model

import (
	"encoding/json"
	"strings"
	"time"
)

// DateTimeLayout is the wire format for every timestamp in the HTTP API.
const DateTimeLayout = "2006-01-02 15:04:05"

// WireTime marshals as DateTimeLayout in UTC.
type WireTime struct {
	time.Time
}

func (t WireTime) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(DateTimeLayout))
}

func (t *WireTime) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := time.ParseInLocation(DateTimeLayout, s, time.UTC)
	if err != nil {
		return Invalid("date %q must match %s", s, DateTimeLayout)
	}
	t.Time = parsed
	return nil
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Annotation        string   `json:"annotation" validate:"required"`
	Category          *int64   `json:"category" validate:"required,gte=0"`
	Description       string   `json:"description" validate:"required"`
	EventDate         WireTime `json:"eventDate"`
	Location          int64    `json:"location" validate:"gte=0"`
	Paid              bool     `json:"paid"`
	ParticipantLimit  int      `json:"participantLimit" validate:"gte=0"`
	RequestModeration *bool    `json:"requestModeration"`
	Title             string   `json:"title" validate:"required"`
}

// ToNewEvent converts the payload into the domain input.
func (r CreateEventRequest) ToNewEvent() NewEvent {
	var category int64
	if r.Category != nil {
		category = *r.Category
	}
	return NewEvent{
		Annotation:        r.Annotation,
		CategoryID:        category,
		Description:       r.Description,
		EventDate:         r.EventDate.Time,
		LocationID:        r.Location,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		Title:             r.Title,
	}
}

// UpdateEventRequest is the payload for patching an event. Absent fields stay
// unchanged.
type UpdateEventRequest struct {
	Annotation        *string   `json:"annotation"`
	Category          *int64    `json:"category" validate:"omitempty,gte=0"`
	Description       *string   `json:"description"`
	EventDate         *WireTime `json:"eventDate"`
	Location          *int64    `json:"location" validate:"omitempty,gte=0"`
	Paid              *bool     `json:"paid"`
	ParticipantLimit  *int      `json:"participantLimit" validate:"omitempty,gte=0"`
	RequestModeration *bool     `json:"requestModeration"`
	Title             *string   `json:"title"`
	StateAction       *string   `json:"stateAction"`
}

// ToPatch converts the payload into a domain patch.
func (r UpdateEventRequest) ToPatch() EventPatch {
	p := EventPatch{
		Annotation:        r.Annotation,
		CategoryID:        r.Category,
		Description:       r.Description,
		LocationID:        r.Location,
		Paid:              r.Paid,
		ParticipantLimit:  r.ParticipantLimit,
		RequestModeration: r.RequestModeration,
		Title:             r.Title,
	}
	if r.EventDate != nil {
		d := r.EventDate.Time
		p.EventDate = &d
	}
	return p
}

// StatusUpdateRequest is the payload for moderating a batch of requests.
type StatusUpdateRequest struct {
	RequestIDs []string `json:"requestIds" validate:"required,min=1,dive,uuid"`
	Status     string   `json:"status" validate:"required"`
}

// EventResponse is the wire shape of an enriched event.
type EventResponse struct {
	ID                string    `json:"id"`
	Annotation        string    `json:"annotation"`
	Category          int64     `json:"category"`
	ConfirmedRequests int       `json:"confirmedRequests"`
	CreatedOn         WireTime  `json:"createdOn"`
	Description       string    `json:"description"`
	EventDate         WireTime  `json:"eventDate"`
	Initiator         string    `json:"initiator"`
	Location          int64     `json:"location"`
	Paid              bool      `json:"paid"`
	ParticipantLimit  int       `json:"participantLimit"`
	PublishedOn       *WireTime `json:"publishedOn,omitempty"`
	RequestModeration bool      `json:"requestModeration"`
	State             string    `json:"state"`
	Title             string    `json:"title"`
	Views             int64     `json:"views"`
}

// ToEventResponse flattens an EventView for the wire.
func ToEventResponse(v EventView) EventResponse {
	resp := EventResponse{
		ID:                v.ID,
		Annotation:        v.Annotation,
		Category:          v.CategoryID,
		ConfirmedRequests: v.ConfirmedRequests,
		CreatedOn:         WireTime{v.CreatedOn},
		Description:       v.Description,
		EventDate:         WireTime{v.EventDate},
		Initiator:         v.InitiatorID,
		Location:          v.LocationID,
		Paid:              v.Paid,
		ParticipantLimit:  v.ParticipantLimit,
		RequestModeration: v.RequestModeration,
		State:             string(v.State),
		Title:             v.Title,
		Views:             v.Views,
	}
	if v.PublishedOn != nil {
		resp.PublishedOn = &WireTime{*v.PublishedOn}
	}
	return resp
}

// RequestResponse is the wire shape of a participation request.
type RequestResponse struct {
	ID        string   `json:"id"`
	Created   WireTime `json:"created"`
	Event     string   `json:"event"`
	Requester string   `json:"requester"`
	Status    string   `json:"status"`
}

// ToRequestResponse converts a request for the wire.
func ToRequestResponse(r *Request) RequestResponse {
	return RequestResponse{
		ID:        r.ID,
		Created:   WireTime{r.Created},
		Event:     r.EventID,
		Requester: r.RequesterID,
		Status:    string(r.Status),
	}
}

// ToRequestResponses converts a list, never returning nil.
func ToRequestResponses(rs []*Request) []RequestResponse {
	out := make([]RequestResponse, 0, len(rs))
	for _, r := range rs {
		out = append(out, ToRequestResponse(r))
	}
	return out
}

// StatusUpdateResponse is the wire shape of a moderated batch.
type StatusUpdateResponse struct {
	ConfirmedRequests []RequestResponse `json:"confirmedRequests"`
	RejectedRequests  []RequestResponse `json:"rejectedRequests"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
