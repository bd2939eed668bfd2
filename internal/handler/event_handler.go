package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"orgie/internal/service"
	"orgie/pkg/logger"
)

// EventHandler serves events, their terms and derived views
type EventHandler struct {
	events *service.EventService
	logger *logger.Logger
	// calendar times are rendered in this zone
	location *time.Location
}

// NewEventHandler creates a new event handler
func NewEventHandler(events *service.EventService, log *logger.Logger) *EventHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &EventHandler{events: events, logger: log, location: time.Local}
}

// RegisterRoutes mounts the event API under /events. Reads are public,
// writes go through auth.
func (h *EventHandler) RegisterRoutes(r chi.Router, auth func(http.Handler) http.Handler) {
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/uuid/{uuid}", h.GetEvent)
		r.Get("/uuid/{uuid}/archived", h.ListArchivedTerms)
		r.Get("/uuid/{uuid}/stats", h.GetStats)
		r.Get("/uuid/{uuid}/calendar.ics", h.GetCalendar)

		r.Group(func(r chi.Router) {
			r.Use(auth)

			r.Post("/", h.CreateEvent)
			r.Get("/dashboard", h.Dashboard)
			r.Get("/my", h.ListMyEvents)
			r.Put("/{id}", h.UpdateEvent)
			r.Delete("/{id}", h.DeleteEvent)
			// {id} is the event uuid here
			r.Post("/{id}/attendance", h.ToggleEventAttendance)

			r.Post("/terms", h.GenerateTerms)
			r.Delete("/terms/{termId}", h.DeleteTerm)
			r.Post("/terms/{termId}/attendance", h.ToggleTermAttendance)
			r.Post("/terms/{termId}/statistics", h.SaveStatistics)
			r.Post("/terms/{termId}/outcomes", h.PreviewOutcomes)

			r.Delete("/uuid/{uuid}/archived", h.BulkDeleteArchived)
			r.Post("/uuid/{uuid}/guests", h.AddGuest)
			r.Delete("/uuid/{uuid}/attendees", h.RemoveAttendee)
			r.Delete("/uuid/{uuid}/attendees/{userId}", h.RemoveAttendee)
		})
	})
}

// ListEvents handles GET /api/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListEvents(r.Context())
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// GetEvent handles GET /api/events/uuid/{uuid}
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	detail, err := h.events.GetEventByUUID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

// CreateEvent handles POST /api/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.EventInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	event, err := h.events.CreateEvent(r.Context(), p, req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, event)
}

// UpdateEvent handles PUT /api/events/{id}
func (h *EventHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.EventUpdate
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	event, err := h.events.UpdateEvent(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, event)
}

// DeleteEvent handles DELETE /api/events/{id}
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if err := h.events.DeleteEvent(r.Context(), p, chi.URLParam(r, "id")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Event deleted"})
}

// Dashboard handles GET /api/events/dashboard
func (h *EventHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	dash, err := h.events.Dashboard(r.Context(), p)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, dash)
}

// ListMyEvents handles GET /api/events/my
func (h *EventHandler) ListMyEvents(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	events, err := h.events.ListMyEvents(r.Context(), p)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, events)
}

// ToggleEventAttendance handles POST /api/events/{uuid}/attendance
func (h *EventHandler) ToggleEventAttendance(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.AttendeeInput
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	event, err := h.events.ToggleEventAttendance(r.Context(), p, chi.URLParam(r, "id"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"event": event})
}

// AddGuest handles POST /api/events/uuid/{uuid}/guests
func (h *EventHandler) AddGuest(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.GuestInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	event, guest, err := h.events.AddGuest(r.Context(), p, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]interface{}{"event": event, "guest": guest})
}

// RemoveAttendee handles DELETE /api/events/uuid/{uuid}/attendees/{userId}?kind=
func (h *EventHandler) RemoveAttendee(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	in := service.AttendeeInput{
		UserID: chi.URLParam(r, "userId"),
		Kind:   r.URL.Query().Get("kind"),
	}

	event, err := h.events.RemoveAttendee(r.Context(), p, chi.URLParam(r, "uuid"), in)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"event": event})
}

// GetStats handles GET /api/events/uuid/{uuid}/stats?sort=&dir=
func (h *EventHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	summary, err := h.events.EventStats(r.Context(), chi.URLParam(r, "uuid"), q.Get("sort"), q.Get("dir"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondCached(w, r, summary, time.Minute)
}

// GetCalendar handles GET /api/events/uuid/{uuid}/calendar.ics
func (h *EventHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	body, err := h.events.CalendarICS(r.Context(), chi.URLParam(r, "uuid"), h.location)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="events.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}
