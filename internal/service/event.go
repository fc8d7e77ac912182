package service

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service/ports"
)

// EventService orchestrates the event lifecycle and event queries.
type EventService struct {
	core
	views ports.ViewCounter
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(store ports.Store, views ports.ViewCounter, log *slog.Logger, opts ...Option) *EventService {
	return &EventService{
		core:  newCore(store, log, opts),
		views: views,
	}
}

// Create validates the input and stores a new PENDING event owned by initiatorID.
// Request moderation defaults to true when not supplied.
func (s *EventService) Create(ctx context.Context, initiatorID string, in model.NewEvent) (*model.EventView, error) {
	now := s.now()
	if err := in.Validate(now); err != nil {
		return nil, err
	}

	moderation := true
	if in.RequestModeration != nil {
		moderation = *in.RequestModeration
	}
	event := &model.Event{
		ID:                s.newID(),
		Annotation:        in.Annotation,
		CategoryID:        in.CategoryID,
		Description:       in.Description,
		EventDate:         in.EventDate,
		LocationID:        in.LocationID,
		Paid:              in.Paid,
		ParticipantLimit:  in.ParticipantLimit,
		RequestModeration: moderation,
		Title:             in.Title,
		InitiatorID:       initiatorID,
		CreatedOn:         now,
		State:             model.EventPending,
	}
	if err := s.store.Events().Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}

	s.log.InfoContext(ctx, "event created",
		slog.String("event_id", event.ID),
		slog.String("initiator_id", initiatorID),
		slog.Int("participant_limit", event.ParticipantLimit),
	)
	return &model.EventView{Event: *event}, nil
}

// AdminTransition applies an administrator action to a PENDING event.
func (s *EventService) AdminTransition(ctx context.Context, eventID string, action model.AdminAction) (*model.EventView, error) {
	return s.UpdateByAdmin(ctx, eventID, model.EventPatch{}, &action)
}

// OwnerTransition applies an initiator action to a PENDING or CANCELED event.
func (s *EventService) OwnerTransition(ctx context.Context, eventID, actorID string, action model.OwnerAction) (*model.EventView, error) {
	return s.UpdateByOwner(ctx, eventID, actorID, model.EventPatch{}, &action)
}

// UpdateFields changes event fields on behalf of the initiator.
func (s *EventService) UpdateFields(ctx context.Context, eventID, actorID string, patch model.EventPatch) (*model.EventView, error) {
	return s.UpdateByOwner(ctx, eventID, actorID, patch, nil)
}

// UpdateByOwner applies a patch and an optional state action as one change.
// Only the initiator may call it and never on a PUBLISHED event.
func (s *EventService) UpdateByOwner(ctx context.Context, eventID, actorID string, patch model.EventPatch, action *model.OwnerAction) (*model.EventView, error) {
	var updated *model.Event
	err := s.withEventLock(ctx, eventID, func(ctx context.Context, tx ports.Tx, event *model.Event) error {
		updated = nil
		if event.InitiatorID != actorID {
			return model.ErrNotInitiator
		}
		if event.State == model.EventPublished {
			return model.ErrPublishedEventReadOnly
		}
		if err := s.applyPatch(ctx, tx, event, patch); err != nil {
			return err
		}
		if action != nil {
			if err := event.ApplyOwner(*action, s.now()); err != nil {
				return err
			}
		}
		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "event updated by initiator",
		slog.String("event_id", eventID),
		slog.String("state", string(updated.State)),
	)
	if action != nil && updated.State == model.EventCanceled {
		s.publish(ctx, KeyEventCanceled, updated)
	}
	return s.view(ctx, updated)
}

// UpdateByAdmin applies a patch and an optional administrator action as one
// change. Lowering the participant limit below the confirmed count is refused.
func (s *EventService) UpdateByAdmin(ctx context.Context, eventID string, patch model.EventPatch, action *model.AdminAction) (*model.EventView, error) {
	var updated *model.Event
	err := s.withEventLock(ctx, eventID, func(ctx context.Context, tx ports.Tx, event *model.Event) error {
		updated = nil
		if err := s.applyPatch(ctx, tx, event, patch); err != nil {
			return err
		}
		if action != nil {
			if err := event.ApplyAdmin(*action, s.now()); err != nil {
				return err
			}
		}
		if err := tx.Events().Update(ctx, event); err != nil {
			return fmt.Errorf("update event: %w", err)
		}
		updated = event
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "event updated by admin",
		slog.String("event_id", eventID),
		slog.String("state", string(updated.State)),
	)
	if action != nil {
		switch updated.State {
		case model.EventPublished:
			s.publish(ctx, KeyEventPublished, updated)
		case model.EventCanceled:
			s.publish(ctx, KeyEventCanceled, updated)
		}
	}
	return s.view(ctx, updated)
}

// applyPatch validates and applies field changes. Runs under the event lock.
func (s *EventService) applyPatch(ctx context.Context, tx ports.Tx, event *model.Event, patch model.EventPatch) error {
	if patch.Empty() {
		return nil
	}
	if err := patch.Validate(s.now()); err != nil {
		return err
	}
	if patch.ParticipantLimit != nil && *patch.ParticipantLimit > 0 {
		confirmed, err := confirmedCount(ctx, tx, event.ID)
		if err != nil {
			return err
		}
		if *patch.ParticipantLimit < confirmed {
			return model.ErrLimitBelowConfirmed
		}
	}
	patch.Apply(event)
	return nil
}

// GetPublished returns a PUBLISHED event with its counters. Any other state
// is reported as not found.
func (s *EventService) GetPublished(ctx context.Context, eventID string) (*model.EventView, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.State != model.EventPublished {
		return nil, model.ErrEventNotFound
	}
	return s.view(ctx, event)
}

// GetForOwner returns any event of the initiator. Events of other users are
// reported as not found.
func (s *EventService) GetForOwner(ctx context.Context, actorID, eventID string) (*model.EventView, error) {
	event, err := s.store.Events().GetByID(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.InitiatorID != actorID {
		return nil, model.ErrEventNotFound
	}
	return s.view(ctx, event)
}

// ListByInitiator returns one page of the initiator's events.
func (s *EventService) ListByInitiator(ctx context.Context, actorID string, page model.Page) ([]model.EventView, error) {
	events, err := s.store.Events().List(ctx, model.EventFilter{InitiatorIDs: []string{actorID}})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	lo, hi := page.Normalize().Window(len(events))
	return s.enrich(ctx, events[lo:hi])
}

// SearchAdmin returns one page of events in any state.
func (s *EventService) SearchAdmin(ctx context.Context, f model.AdminFilter) ([]model.EventView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	events, err := s.store.Events().List(ctx, f.EventFilter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	lo, hi := f.Page.Normalize().Window(len(events))
	return s.enrich(ctx, events[lo:hi])
}

// SearchPublic returns one page of PUBLISHED events. Without a date range
// only upcoming events are returned.
func (s *EventService) SearchPublic(ctx context.Context, f model.PublicFilter) ([]model.EventView, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	filter := f.EventFilter
	filter.States = []model.EventState{model.EventPublished}
	if filter.RangeStart == nil && filter.RangeEnd == nil {
		now := s.now()
		filter.RangeStart = &now
	}

	events, err := s.store.Events().List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	views, err := s.enrich(ctx, events)
	if err != nil {
		return nil, err
	}

	if f.OnlyAvailable {
		views = slices.DeleteFunc(views, func(v model.EventView) bool { return !v.Available() })
	}
	if f.Sort == model.SortViews {
		slices.SortStableFunc(views, func(a, b model.EventView) int {
			return cmp.Compare(b.Views, a.Views)
		})
	}

	lo, hi := f.Page.Normalize().Window(len(views))
	return views[lo:hi], nil
}

// RecordView reports a page view to the statistics service. Failures are
// logged only.
func (s *EventService) RecordView(ctx context.Context, uri, ip string) {
	if err := s.views.RecordHit(ctx, uri, ip); err != nil {
		s.log.WarnContext(ctx, "record view",
			slog.String("uri", uri),
			slog.Any("error", err),
		)
	}
}

func (s *EventService) view(ctx context.Context, event *model.Event) (*model.EventView, error) {
	views, err := s.enrich(ctx, []*model.Event{event})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// enrich attaches confirmed counts and view counts. A failing view counter
// degrades to zero views.
func (s *EventService) enrich(ctx context.Context, events []*model.Event) ([]model.EventView, error) {
	out := make([]model.EventView, 0, len(events))
	if len(events) == 0 {
		return out, nil
	}

	ids := make([]string, len(events))
	var published []*model.Event
	for i, e := range events {
		ids[i] = e.ID
		if e.State == model.EventPublished {
			published = append(published, e)
		}
	}

	counts, err := s.store.Requests().CountConfirmedByEvents(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count confirmed requests: %w", err)
	}

	var views map[string]int64
	if len(published) > 0 {
		views, err = s.views.Views(ctx, published)
		if err != nil {
			s.log.WarnContext(ctx, "fetch view counts", slog.Any("error", err))
			views = nil
		}
	}

	for _, e := range events {
		out = append(out, model.EventView{
			Event:             *e,
			ConfirmedRequests: counts[e.ID],
			Views:             views[e.ID],
		})
	}
	return out, nil
}
