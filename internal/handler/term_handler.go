package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"orgie/internal/domain"
	"orgie/internal/service"
)

type statisticsRequest struct {
	Statistics *domain.Statistics `json:"statistics"`
}

type generateResponse struct {
	Message string `json:"message"`
	*service.GenerateResult
}

// GenerateTerms handles POST /api/events/terms
func (h *EventHandler) GenerateTerms(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.GenerateInput
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	res, err := h.events.GenerateTerms(r.Context(), p, req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	message := "Terms generated successfully"
	if res.Total == 0 {
		message = "No terms to generate for selected date range"
	}
	respondJSON(w, http.StatusOK, generateResponse{Message: message, GenerateResult: res})
}

// DeleteTerm handles DELETE /api/events/terms/{termId}
func (h *EventHandler) DeleteTerm(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if err := h.events.DeleteTerm(r.Context(), p, chi.URLParam(r, "termId")); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Term deleted"})
}

// ToggleTermAttendance handles POST /api/events/terms/{termId}/attendance
func (h *EventHandler) ToggleTermAttendance(w http.ResponseWriter, r *http.Request) {
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

	term, err := h.events.ToggleTermAttendance(r.Context(), p, chi.URLParam(r, "termId"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"term": term})
}

// SaveStatistics handles POST /api/events/terms/{termId}/statistics
func (h *EventHandler) SaveStatistics(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req statisticsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	term, err := h.events.SaveStatistics(r.Context(), p, chi.URLParam(r, "termId"), req.Statistics)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"term": term})
}

// PreviewOutcomes handles POST /api/events/terms/{termId}/outcomes
func (h *EventHandler) PreviewOutcomes(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if err := decodeJSON(r, &req, false); err != nil {
		respondError(w, r, err, h.logger)
		return
	}

	outcomes, err := h.events.PreviewOutcomes(r.Context(), chi.URLParam(r, "termId"), req.Statistics)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"outcomes": outcomes})
}

// ListArchivedTerms handles GET /api/events/uuid/{uuid}/archived. The body
// is a bare array, most recent first.
func (h *EventHandler) ListArchivedTerms(w http.ResponseWriter, r *http.Request) {
	terms, err := h.events.ListArchivedTerms(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if terms == nil {
		terms = []*domain.Term{}
	}
	respondJSON(w, http.StatusOK, terms)
}

// BulkDeleteArchived handles DELETE /api/events/uuid/{uuid}/archived. The
// range comes from the body or, failing that, the query string.
func (h *EventHandler) BulkDeleteArchived(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	var req service.RangeInput
	if err := decodeJSON(r, &req, true); err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	if req.StartDate == "" && req.EndDate == "" {
		req.StartDate = r.URL.Query().Get("startDate")
		req.EndDate = r.URL.Query().Get("endDate")
	}

	deleted, err := h.events.BulkDeleteArchived(r.Context(), p, chi.URLParam(r, "uuid"), req)
	if err != nil {
		respondError(w, r, err, h.logger)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      fmt.Sprintf("Successfully deleted %d archived terms", deleted),
		"deletedCount": deleted,
	})
}
