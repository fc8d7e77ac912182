package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
)

// RequestService orchestrates participation requests.
type RequestService struct {
	core
}

// NewRequestService constructs a RequestService with its dependencies.
func NewRequestService(store ports.Store, log *slog.Logger, opts ...Option) *RequestService {
	return &RequestService{core: newCore(store, log, opts)}
}

// Submit files a participation request for requesterID.
//
// Checks run in this order under the event lock: event published, requester
// is not the initiator, no active request exists, a slot is free. The new
// request is CONFIRMED when the event is unmoderated and PENDING otherwise.
func (s *RequestService) Submit(ctx context.Context, requesterID, eventID string) (*model.Request, error) {
	var created *model.Request
	err := s.withEventLock(ctx, eventID, func(ctx context.Context, tx ports.Tx, event *model.Event) error {
		created = nil
		if event.State != model.EventPublished {
			return model.ErrEventNotPublished
		}
		if requesterID == event.InitiatorID {
			return model.ErrInitiatorRequest
		}

		_, err := tx.Requests().FindActive(ctx, requesterID, eventID)
		switch {
		case err == nil:
			return model.ErrAlreadyRequested
		case !errors.Is(err, model.ErrNotFound):
			return fmt.Errorf("find active request: %w", err)
		}

		if !event.Unlimited() {
			confirmed, err := confirmedCount(ctx, tx, eventID)
			if err != nil {
				return err
			}
			if !model.HasCapacity(event, confirmed) {
				return model.ErrParticipantLimit
			}
		}

		req := &model.Request{
			ID:          s.newID(),
			EventID:     eventID,
			RequesterID: requesterID,
			Created:     s.now(),
			Status:      event.InitialRequestStatus(),
		}
		if err := tx.Requests().Create(ctx, req); err != nil {
			return err
		}
		created = req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "participation request created",
		slog.String("request_id", created.ID),
		slog.String("event_id", eventID),
		slog.String("requester_id", requesterID),
		slog.String("status", string(created.Status)),
	)
	s.publish(ctx, KeyRequestCreated, created)
	return created, nil
}

// Cancel withdraws the requester's own request. Canceling an already
// CANCELED request returns it unchanged.
func (s *RequestService) Cancel(ctx context.Context, requesterID, requestID string) (*model.Request, error) {
	req, err := s.store.Requests().GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequesterID != requesterID {
		return nil, model.ErrRequestNotFound
	}
	if req.Status == model.RequestCanceled {
		return req, nil
	}

	var (
		canceled *model.Request
		changed  bool
	)
	err = s.withEventLock(ctx, req.EventID, func(ctx context.Context, tx ports.Tx, _ *model.Event) error {
		canceled, changed = nil, false
		current, err := tx.Requests().GetByID(ctx, requestID)
		if err != nil {
			return err
		}
		if current.Status == model.RequestCanceled {
			canceled = current
			return nil
		}
		if !model.CanTransition(current.Status, model.RequestCanceled) {
			return model.IllegalTransition(string(current.Status), string(model.RequestCanceled))
		}
		if err := tx.Requests().UpdateStatusBatch(ctx, []string{requestID}, model.RequestCanceled); err != nil {
			return fmt.Errorf("cancel request: %w", err)
		}
		current.Status = model.RequestCanceled
		canceled, changed = current, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.InfoContext(ctx, "participation request canceled",
			slog.String("request_id", requestID),
			slog.String("event_id", canceled.EventID),
		)
		s.publish(ctx, KeyRequestCanceled, canceled)
	}
	return canceled, nil
}

// BatchUpdateStatus lets the initiator confirm or reject PENDING requests.
//
// Rejection applies to the whole batch. Confirmation admits requests in the
// order given until the limit is reached; the rest of the batch is rejected.
// When no slot is free at all the call fails and nothing changes. Repeated
// ids count once.
func (s *RequestService) BatchUpdateStatus(ctx context.Context, initiatorID, eventID string, requestIDs []string, target model.RequestStatus) (*model.StatusUpdateResult, error) {
	if target != model.RequestConfirmed && target != model.RequestRejected {
		return nil, model.Invalid("status must be %s or %s", model.RequestConfirmed, model.RequestRejected)
	}
	ids := model.DedupIDs(requestIDs)
	if len(ids) == 0 {
		return nil, model.Invalid("request ids are required")
	}

	var result *model.StatusUpdateResult
	err := s.withEventLock(ctx, eventID, func(ctx context.Context, tx ports.Tx, event *model.Event) error {
		result = nil
		if event.InitiatorID != initiatorID {
			return model.ErrNotInitiator
		}
		if !event.Moderated() {
			return model.ErrModerationNotRequired
		}

		batch, err := loadPendingBatch(ctx, tx, eventID, ids)
		if err != nil {
			return err
		}

		if target == model.RequestRejected {
			if err := setStatus(ctx, tx, batch, model.RequestRejected); err != nil {
				return err
			}
			result = &model.StatusUpdateResult{Confirmed: []*model.Request{}, Rejected: batch}
			return nil
		}

		confirmed, err := confirmedCount(ctx, tx, eventID)
		if err != nil {
			return err
		}
		free := model.FreeSlots(event.ParticipantLimit, confirmed)
		if free == 0 {
			return model.ErrParticipantLimit
		}

		admitted, overflow := model.Partition(batch, free)
		if err := setStatus(ctx, tx, admitted, model.RequestConfirmed); err != nil {
			return err
		}
		if err := setStatus(ctx, tx, overflow, model.RequestRejected); err != nil {
			return err
		}
		if overflow == nil {
			overflow = []*model.Request{}
		}
		result = &model.StatusUpdateResult{Confirmed: admitted, Rejected: overflow}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "participation requests moderated",
		slog.String("event_id", eventID),
		slog.Int("confirmed", len(result.Confirmed)),
		slog.Int("rejected", len(result.Rejected)),
	)
	for _, r := range result.Confirmed {
		s.publish(ctx, KeyRequestConfirmed, r)
	}
	for _, r := range result.Rejected {
		s.publish(ctx, KeyRequestRejected, r)
	}
	return result, nil
}

// ListByRequester returns every request the user has submitted.
func (s *RequestService) ListByRequester(ctx context.Context, requesterID string) ([]*model.Request, error) {
	reqs, err := s.store.Requests().ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// ListForEvent returns the requests of an event to its initiator.
func (s *RequestService) ListForEvent(ctx context.Context, initiatorID, eventID string) ([]*model.Request, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.InitiatorID != initiatorID {
		return nil, model.ErrNotInitiator
	}
	reqs, err := s.store.Requests().ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return reqs, nil
}

// loadPendingBatch returns the requests in ids order. Every id must belong
// to eventID and be PENDING.
func loadPendingBatch(ctx context.Context, tx ports.Tx, eventID string, ids []string) ([]*model.Request, error) {
	found, err := tx.Requests().GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load requests: %w", err)
	}
	byID := make(map[string]*model.Request, len(found))
	for _, r := range found {
		byID[r.ID] = r
	}

	batch := make([]*model.Request, 0, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok || r.EventID != eventID {
			return nil, fmt.Errorf("%w: %s", model.ErrRequestNotFound, id)
		}
		if r.Status != model.RequestPending {
			return nil, fmt.Errorf("%w: %s is %s", model.ErrRequestNotPending, id, r.Status)
		}
		batch = append(batch, r)
	}
	return batch, nil
}

func setStatus(ctx context.Context, tx ports.Tx, reqs []*model.Request, status model.RequestStatus) error {
	if len(reqs) == 0 {
		return nil
	}
	ids := make([]string, len(reqs))
	for i, r := range reqs {
		ids[i] = r.ID
	}
	if err := tx.Requests().UpdateStatusBatch(ctx, ids, status); err != nil {
		return fmt.Errorf("set request status %s: %w", status, err)
	}
	for _, r := range reqs {
		r.Status = status
	}
	return nil
}
