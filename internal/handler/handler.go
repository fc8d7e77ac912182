// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// responder maps service errors onto status codes. Unexpected errors are
// logged and hidden from the client.
type responder struct {
	log      *slog.Logger
	validate *validator.Validate
}

func newResponder(log *slog.Logger) responder {
	return responder{log: log, validate: validator.New()}
}

func (h responder) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, model.ErrValidation):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrTransient):
		h.log.WarnContext(r.Context(), "storage busy", slog.Any("error", err))
		writeError(w, http.StatusServiceUnavailable, "storage is busy, retry later")
	case errors.Is(err, context.Canceled):
		// Client went away; nothing useful to write.
	default:
		h.log.ErrorContext(r.Context(), "request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes and validates a JSON body, writing 400 on failure.
func (h responder) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSON(w, r, dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// ─── Parameter parsing ───────────────────────────────────────────────────────

// pathID reads a UUID path parameter.
func pathID(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	if _, err := uuid.Parse(raw); err != nil {
		return "", model.Invalid("%s must be a UUID", name)
	}
	return raw, nil
}

// userID reads the acting user from the path.
func userID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "userId"))
	if id == "" {
		return "", model.Invalid("userId is required")
	}
	return id, nil
}

func queryPage(r *http.Request) (model.Page, error) {
	from, err := queryInt(r, "from", 0)
	if err != nil {
		return model.Page{}, err
	}
	size, err := queryInt(r, "size", model.DefaultPageSize)
	if err != nil {
		return model.Page{}, err
	}
	if from < 0 || size <= 0 {
		return model.Page{}, model.Invalid("from must be >= 0 and size > 0")
	}
	return model.Page{From: from, Size: size}.Normalize(), nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, model.Invalid("%s must be an integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) (*bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, model.Invalid("%s must be true or false", name)
	}
	return &b, nil
}

func queryTime(r *http.Request, name string) (*time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(model.DateTimeLayout, raw, time.UTC)
	if err != nil {
		return nil, model.Invalid("%s must match %s", name, model.DateTimeLayout)
	}
	return &t, nil
}

// queryList accepts both repeated and comma separated values.
func queryList(r *http.Request, name string) []string {
	var out []string
	for _, v := range r.URL.Query()[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func queryInt64s(r *http.Request, name string) ([]int64, error) {
	raw := queryList(r, name)
	out := make([]int64, 0, len(raw))
	for _, v := range raw {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, model.Invalid("%s must hold integers", name)
		}
		out = append(out, n)
	}
	return out, nil
}

// baseFilter reads the query parameters shared by admin and public search.
func baseFilter(r *http.Request) (model.EventFilter, error) {
	var (
		f   model.EventFilter
		err error
	)
	if f.CategoryIDs, err = queryInt64s(r, "categories"); err != nil {
		return f, err
	}
	if f.RangeStart, err = queryTime(r, "rangeStart"); err != nil {
		return f, err
	}
	if f.RangeEnd, err = queryTime(r, "rangeEnd"); err != nil {
		return f, err
	}
	return f, nil
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func toEventResponses(views []model.EventView) []model.EventResponse {
	out := make([]model.EventResponse, 0, len(views))
	for _, v := range views {
		out = append(out, model.ToEventResponse(v))
	}
	return out
}

// ─── Health check ─────────────────────────────────────────────────────────────

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck handles GET /health
func HealthCheck(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := p.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, fmt.Sprintf("storage unavailable: %v", err))
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
