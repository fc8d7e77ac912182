package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// EventHandler serves the initiator, admin and public event endpoints.
type EventHandler struct {
	responder
	svc *service.EventService
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc *service.EventService, log *slog.Logger) *EventHandler {
	return &EventHandler{responder: newResponder(log), svc: svc}
}

// CreateEvent handles POST /users/{userId}/events
// Creates a PENDING event owned by the user.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req model.CreateEventRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	event, err := h.svc.Create(r.Context(), uid, req.ToNewEvent())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.ToEventResponse(*event))
}

// ListUserEvents handles GET /users/{userId}/events
func (h *EventHandler) ListUserEvents(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	events, err := h.svc.ListByInitiator(r.Context(), uid, page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// GetUserEvent handles GET /users/{userId}/events/{eventId}
func (h *EventHandler) GetUserEvent(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	event, err := h.svc.GetForOwner(r.Context(), uid, eventID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToEventResponse(*event))
}

// UpdateUserEvent handles PATCH /users/{userId}/events/{eventId}
// Applies field changes and an optional SEND_TO_REVIEW or CANCEL_REVIEW action.
func (h *EventHandler) UpdateUserEvent(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req model.UpdateEventRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	var action *model.OwnerAction
	if req.StateAction != nil {
		a, err := model.ParseOwnerAction(*req.StateAction)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		action = &a
	}

	event, err := h.svc.UpdateByOwner(r.Context(), eventID, uid, req.ToPatch(), action)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToEventResponse(*event))
}
