// Package ports declares the collaborators the service layer depends on.
package ports

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// EventRepo persists events.
type EventRepo interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, e *model.Event) error
	// List returns every matching event ordered by event date, then id.
	List(ctx context.Context, f model.EventFilter) ([]*model.Event, error)
}

// RequestRepo persists participation requests.
type RequestRepo interface {
	Create(ctx context.Context, r *model.Request) error
	GetByID(ctx context.Context, id string) (*model.Request, error)
	// GetByIDs skips unknown ids; callers compare lengths.
	GetByIDs(ctx context.Context, ids []string) ([]*model.Request, error)
	ListByEvent(ctx context.Context, eventID string) ([]*model.Request, error)
	ListByRequester(ctx context.Context, requesterID string) ([]*model.Request, error)
	// FindActive returns the PENDING or CONFIRMED request of requesterID for
	// eventID, or model.ErrRequestNotFound.
	FindActive(ctx context.Context, requesterID, eventID string) (*model.Request, error)
	CountConfirmed(ctx context.Context, eventID string) (int, error)
	CountConfirmedByEvents(ctx context.Context, eventIDs []string) (map[string]int, error)
	// UpdateStatusBatch is all-or-nothing.
	UpdateStatusBatch(ctx context.Context, ids []string, status model.RequestStatus) error
}

// Tx exposes repositories bound to one unit of work.
type Tx interface {
	Events() EventRepo
	Requests() RequestRepo
}

// LockedFunc runs inside the capacity critical section of event.
type LockedFunc func(ctx context.Context, tx Tx, event *model.Event) error

// Store is the persistence entry point.
type Store interface {
	Tx
	// LockEvent loads the event and holds its capacity lock while fn runs.
	// Writes made through tx become visible together when fn returns nil.
	// The error from fn is returned unmodified. A missing event yields
	// model.ErrEventNotFound, lock contention model.ErrTransient.
	LockEvent(ctx context.Context, eventID string, fn LockedFunc) error
}

// ViewCounter supplies page view counts collected by the statistics service.
type ViewCounter interface {
	Views(ctx context.Context, events []*model.Event) (map[string]int64, error)
	RecordHit(ctx context.Context, uri, ip string) error
}

// Notifier publishes lifecycle messages to other services.
type Notifier interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}
