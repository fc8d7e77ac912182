package handler

import (
	"log/slog"
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
	"github.com/google/uuid"
)

// RequestHandler serves the participation request endpoints.
type RequestHandler struct {
	responder
	svc *service.RequestService
}

// NewRequestHandler constructs a RequestHandler.
func NewRequestHandler(svc *service.RequestService, log *slog.Logger) *RequestHandler {
	return &RequestHandler{responder: newResponder(log), svc: svc}
}

// ListUserRequests handles GET /users/{userId}/requests
// Returns every request the user has submitted.
func (h *RequestHandler) ListUserRequests(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	reqs, err := h.svc.ListByRequester(r.Context(), uid)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToRequestResponses(reqs))
}

// SubmitRequest handles POST /users/{userId}/requests?eventId=
// Performs a capacity-safe participation request for the event.
func (h *RequestHandler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	eventID := r.URL.Query().Get("eventId")
	if _, err := uuid.Parse(eventID); err != nil {
		writeError(w, http.StatusBadRequest, "eventId query parameter must be a UUID")
		return
	}

	req, err := h.svc.Submit(r.Context(), uid, eventID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, model.ToRequestResponse(req))
}

// CancelRequest handles PATCH /users/{userId}/requests/{requestId}/cancel
func (h *RequestHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	requestID, err := pathID(r, "requestId")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	req, err := h.svc.Cancel(r.Context(), uid, requestID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToRequestResponse(req))
}

// ListEventRequests handles GET /users/{userId}/events/{eventId}/requests
// Returns the requests of an event to its initiator.
func (h *RequestHandler) ListEventRequests(w http.ResponseWriter, r *http.Request) {
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

	reqs, err := h.svc.ListForEvent(r.Context(), uid, eventID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToRequestResponses(reqs))
}

// UpdateEventRequests handles PATCH /users/{userId}/events/{eventId}/requests
// Confirms or rejects a batch of pending requests.
func (h *RequestHandler) UpdateEventRequests(w http.ResponseWriter, r *http.Request) {
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
	var body model.StatusUpdateRequest
	if !h.decodeBody(w, r, &body) {
		return
	}
	status, err := model.ParseRequestStatus(body.Status)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	res, err := h.svc.BatchUpdateStatus(r.Context(), uid, eventID, body.RequestIDs, status)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.StatusUpdateResponse{
		ConfirmedRequests: model.ToRequestResponses(res.Confirmed),
		RejectedRequests:  model.ToRequestResponses(res.Rejected),
	})
}
