package model

import (
	"slices"
	"strings"
	"time"
)

// RequestStatus is the lifecycle state of a participation request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestConfirmed RequestStatus = "CONFIRMED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCanceled  RequestStatus = "CANCELED"
)

// ActiveStatuses hold a requester's single slot for an event. REJECTED and
// CANCELED requests do not block a new submission.
var ActiveStatuses = []RequestStatus{RequestPending, RequestConfirmed}

// The requester may withdraw at any point before CANCELED, including after a
// rejection.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestPending:   {RequestConfirmed, RequestRejected, RequestCanceled},
	RequestConfirmed: {RequestCanceled},
	RequestRejected:  {RequestCanceled},
}

// ParseRequestStatus accepts a status name in any letter case.
func ParseRequestStatus(s string) (RequestStatus, error) {
	switch st := RequestStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case RequestPending, RequestConfirmed, RequestRejected, RequestCanceled:
		return st, nil
	}
	return "", Invalid("unknown request status %q", s)
}

// CanTransition reports whether the request state machine allows from -> to.
func CanTransition(from, to RequestStatus) bool {
	return slices.Contains(requestTransitions[from], to)
}

// Active reports whether s occupies the requester's slot for the event.
func (s RequestStatus) Active() bool {
	return s == RequestPending || s == RequestConfirmed
}

// Request is one user's application to participate in an event.
type Request struct {
	ID          string        `json:"id"`
	EventID     string        `json:"event"`
	RequesterID string        `json:"requester"`
	Created     time.Time     `json:"created"`
	Status      RequestStatus `json:"status"`
}

// StatusUpdateResult partitions a moderated batch.
type StatusUpdateResult struct {
	Confirmed []*Request `json:"confirmed_requests"`
	Rejected  []*Request `json:"rejected_requests"`
}
