// Package memory is an in-process store used for local runs and service tests.
// It mirrors the PostgreSQL store's guarantees: one lock per event, an
// active-request uniqueness check and all-or-nothing batch status updates.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
)

// Store keeps events and requests in maps. Records are copied on the way in
// and out so callers never share memory with the store.
type Store struct {
	mu       sync.RWMutex
	events   map[string]*model.Event
	requests map[string]*model.Request

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		events:   make(map[string]*model.Event),
		requests: make(map[string]*model.Request),
		locks:    make(map[string]*sync.Mutex),
	}
}

// Events returns the event repository.
func (s *Store) Events() ports.EventRepo { return eventRepo{s} }

// Requests returns the request repository.
func (s *Store) Requests() ports.RequestRepo { return requestRepo{s} }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// eventLock returns the mutex for eventID, creating it on first use.
func (s *Store) eventLock(eventID string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.locks[eventID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[eventID] = l
	}
	return l
}

// LockEvent holds the event's mutex while fn runs. Writes are applied as fn
// makes them; fn performs its checks before writing so an error leaves no
// partial state behind.
func (s *Store) LockEvent(ctx context.Context, eventID string, fn ports.LockedFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	l := s.eventLock(eventID)
	l.Lock()
	defer l.Unlock()

	event, err := s.Events().GetByID(ctx, eventID)
	if err != nil {
		return err
	}
	return fn(ctx, s, event)
}

type eventRepo struct{ s *Store }

func (r eventRepo) Create(_ context.Context, e *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c := *e
	r.s.events[e.ID] = &c
	return nil
}

func (r eventRepo) GetByID(_ context.Context, id string) (*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.events[id]
	if !ok {
		return nil, model.ErrEventNotFound
	}
	c := *e
	return &c, nil
}

func (r eventRepo) Update(_ context.Context, e *model.Event) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.events[e.ID]; !ok {
		return model.ErrEventNotFound
	}
	c := *e
	r.s.events[e.ID] = &c
	return nil
}

func (r eventRepo) List(_ context.Context, f model.EventFilter) ([]*model.Event, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*model.Event
	for _, e := range r.s.events {
		if f.Matches(e) {
			c := *e
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Event) int {
		if c := a.EventDate.Compare(b.EventDate); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out, nil
}

type requestRepo struct{ s *Store }

func (r requestRepo) Create(_ context.Context, req *model.Request) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if req.Status.Active() && r.s.findActive(req.RequesterID, req.EventID) != nil {
		return model.ErrAlreadyRequested
	}
	c := *req
	r.s.requests[req.ID] = &c
	return nil
}

func (r requestRepo) GetByID(_ context.Context, id string) (*model.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req, ok := r.s.requests[id]
	if !ok {
		return nil, model.ErrRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r requestRepo) GetByIDs(_ context.Context, ids []string) ([]*model.Request, error) {
	return r.s.collect(func(req *model.Request) bool { return slices.Contains(ids, req.ID) }), nil
}

func (r requestRepo) ListByEvent(_ context.Context, eventID string) ([]*model.Request, error) {
	return r.s.collect(func(req *model.Request) bool { return req.EventID == eventID }), nil
}

func (r requestRepo) ListByRequester(_ context.Context, requesterID string) ([]*model.Request, error) {
	return r.s.collect(func(req *model.Request) bool { return req.RequesterID == requesterID }), nil
}

func (r requestRepo) FindActive(_ context.Context, requesterID, eventID string) (*model.Request, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	req := r.s.findActive(requesterID, eventID)
	if req == nil {
		return nil, model.ErrRequestNotFound
	}
	c := *req
	return &c, nil
}

func (r requestRepo) CountConfirmed(_ context.Context, eventID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, req := range r.s.requests {
		if req.EventID == eventID && req.Status == model.RequestConfirmed {
			n++
		}
	}
	return n, nil
}

func (r requestRepo) CountConfirmedByEvents(_ context.Context, eventIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	counts := make(map[string]int, len(eventIDs))
	for _, req := range r.s.requests {
		if req.Status == model.RequestConfirmed && slices.Contains(eventIDs, req.EventID) {
			counts[req.EventID]++
		}
	}
	return counts, nil
}

func (r requestRepo) UpdateStatusBatch(_ context.Context, ids []string, status model.RequestStatus) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if _, ok := r.s.requests[id]; !ok {
			return model.ErrRequestNotFound
		}
	}
	for _, id := range ids {
		r.s.requests[id].Status = status
	}
	return nil
}

// findActive must be called with mu held.
func (s *Store) findActive(requesterID, eventID string) *model.Request {
	for _, req := range s.requests {
		if req.RequesterID == requesterID && req.EventID == eventID && req.Status.Active() {
			return req
		}
	}
	return nil
}

func (s *Store) collect(keep func(*model.Request) bool) []*model.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*model.Request
	for _, req := range s.requests {
		if keep(req) {
			c := *req
			out = append(out, &c)
		}
	}
	slices.SortFunc(out, func(a, b *model.Request) int {
		if c := a.Created.Compare(b.Created); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}
