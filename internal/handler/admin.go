package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// AdminSearchEvents handles GET /admin/events
// Filters: users, states, categories, rangeStart, rangeEnd, from, size.
func (h *EventHandler) AdminSearchEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := baseFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	filter.InitiatorIDs = queryList(r, "users")
	for _, raw := range queryList(r, "states") {
		state, err := model.ParseEventState(raw)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		filter.States = append(filter.States, state)
	}
	page, err := queryPage(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	events, err := h.svc.SearchAdmin(r.Context(), model.AdminFilter{EventFilter: filter, Page: page})
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toEventResponses(events))
}

// AdminUpdateEvent handles PATCH /admin/events/{eventId}
// Applies field changes and an optional PUBLISH_EVENT or REJECT_EVENT action.
func (h *EventHandler) AdminUpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID, err := pathID(r, "eventId")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	var req model.UpdateEventRequest
	if !h.decodeBody(w, r, &req) {
		return
	}

	var action *model.AdminAction
	if req.StateAction != nil {
		a, err := model.ParseAdminAction(*req.StateAction)
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		action = &a
	}

	event, err := h.svc.UpdateByAdmin(r.Context(), eventID, req.ToPatch(), action)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ToEventResponse(*event))
}
