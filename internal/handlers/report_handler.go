package handlers

import (
	"errors"
	"net/http"

	"storynest/internal/service"
)

// ReportHandler serves derived quiz reports for parent dashboards
type ReportHandler struct {
	attemptService    *service.AttemptService
	completionService *service.CompletionService
}

// NewReportHandler creates a new report handler
func NewReportHandler(attemptService *service.AttemptService, completionService *service.CompletionService) *ReportHandler {
	return &ReportHandler{
		attemptService:    attemptService,
		completionService: completionService,
	}
}

// Sessions handles GET /api/books/{book}/sessions
func (h *ReportHandler) Sessions(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	sessions, err := h.attemptService.GetSessions(readerID, r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load sessions", "", err)
		return
	}

	resp := make([]SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	respondJSON(w, http.StatusOK, resp)
}

// LatestSession handles GET /api/books/{book}/sessions/latest
func (h *ReportHandler) LatestSession(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	session, err := h.attemptService.GetLatestSession(readerID, r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load session", "", err)
		return
	}
	if session == nil {
		respondWithError(w, http.StatusNotFound, "No quiz sessions", "", nil)
		return
	}

	respondJSON(w, http.StatusOK, toSessionResponse(*session))
}

// Average handles GET /api/readers/me/average
func (h *ReportHandler) Average(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	avg, sessions, err := h.attemptService.GetAverageScore(readerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to compute average", "", err)
		return
	}

	respondJSON(w, http.StatusOK, AverageResponse{
		AveragePercentage: avg,
		SessionsCounted:   sessions,
	})
}

// Awards handles GET /api/readers/me/awards
func (h *ReportHandler) Awards(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	awards, err := h.completionService.ListAwards(readerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load awards", "", err)
		return
	}

	resp := make([]AwardResponse, 0, len(awards))
	for _, a := range awards {
		resp = append(resp, AwardResponse{
			ID:       a.ID,
			BookID:   a.BookID,
			Kind:     a.Kind,
			IssuedAt: a.IssuedAt,
		})
	}
	respondJSON(w, http.StatusOK, resp)
}
