package handler

import (
	"context"
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// SearchEvents handles GET /events
// Anonymous search over published events. Filters: text, categories, paid,
// rangeStart, rangeEnd, onlyAvailable, sort (EVENT_DATE|VIEWS), from, size.
func (h *EventHandler) SearchEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := baseFilter(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	filter.Text = r.URL.Query().Get("text")
	if filter.Paid, err = queryBool(r, "paid"); err != nil {
		h.handleError(w, r, err)
		return
	}
	onlyAvailable, err := queryBool(r, "onlyAvailable")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	sort, err := model.ParseEventSort(r.URL.Query().Get("sort"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	page, err := queryPage(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	events, err := h.svc.SearchPublic(r.Context(), model.PublicFilter{
		EventFilter:   filter,
		OnlyAvailable: onlyAvailable != nil && *onlyAvailable,
		Sort:          sort,
		Page:          page,
	})
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toEventResponses(events))
	h.recordView(r)
}

// GetEvent handles GET /events/{id}
// Returns a published event; other states are not found.
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	event, err := h.svc.GetPublished(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ToEventResponse(*event))
	h.recordView(r)
}

// recordView reports the hit in the background, after the response.
func (h *EventHandler) recordView(r *http.Request) {
	go h.svc.RecordView(context.WithoutCancel(r.Context()), r.URL.Path, clientIP(r))
}
