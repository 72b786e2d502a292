package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/maeuln/community/internal/service"
)

// EventHandler serves the caller's own calendar.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	return &EventHandler{events: events, logger: logger}
}

// eventRequest is a new or edited event. StartTime is RFC 3339; date may
// be left out when StartTime is given.
type eventRequest struct {
	Date      string     `json:"date"      validate:"omitempty,datetime=2006-01-02"`
	StartTime *time.Time `json:"startTime"`
	Title     string     `json:"title"     validate:"required,max=100"`
}

func (req eventRequest) input() service.EventInput {
	return service.EventInput{Date: req.Date, StartTime: req.StartTime, Title: req.Title}
}

// HandleList returns the caller's events.
//
// HTTP: GET /api/events?month=2025-03   → events grouped by date
// HTTP: GET /api/events?from=&to=       → flat list in date order
func (h *EventHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if month := q.Get("month"); month != "" {
		grouped, err := h.events.Month(r.Context(), currentUserID(r), month)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, grouped)
		return
	}

	events, err := h.events.List(r.Context(), currentUserID(r), q.Get("from"), q.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// HandleCreate adds an event.
//
// HTTP: POST /api/events
func (h *EventHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.events.Create(r.Context(), currentUserID(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// HandleUpdate edits an event.
//
// HTTP: PUT /api/events/{id}
func (h *EventHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	e, err := h.events.Update(r.Context(), currentUserID(r), chi.URLParam(r, "id"), req.input())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// HandleDelete removes an event.
//
// HTTP: DELETE /api/events/{id}
func (h *EventHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.events.Delete(r.Context(), currentUserID(r), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
