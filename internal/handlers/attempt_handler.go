package handlers

import (
	"errors"
	"net/http"

	"storynest/internal/models"
	"storynest/internal/service"
)

// AttemptHandler records quiz attempts and book completions
type AttemptHandler struct {
	attemptService    *service.AttemptService
	completionService *service.CompletionService
}

// NewAttemptHandler creates a new attempt handler
func NewAttemptHandler(attemptService *service.AttemptService, completionService *service.CompletionService) *AttemptHandler {
	return &AttemptHandler{
		attemptService:    attemptService,
		completionService: completionService,
	}
}

// Record handles POST /api/books/{book}/attempts
func (h *AttemptHandler) Record(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	var req AttemptRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	attempt, err := h.attemptService.RecordAttempt(readerID, r.PathValue("book"), req.PageID, req.ScoreCorrect, req.ScoreTotal, models.QuizMode(req.Mode))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "Attempt rejected", err)
		return
	}

	respondJSON(w, http.StatusCreated, toAttemptResponse(*attempt))
}

// List handles GET /api/books/{book}/attempts
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	attempts, err := h.attemptService.ListAttempts(readerID, r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load attempts", "", err)
		return
	}

	resp := make([]AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		resp = append(resp, toAttemptResponse(a))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Complete handles POST /api/books/{book}/complete. The first completion
// issues an award and notifies the parent; repeats are no-ops.
func (h *AttemptHandler) Complete(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	newlyAwarded, err := h.completionService.CompleteBook(r.Context(), readerID, r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to record completion", "", err)
		return
	}

	respondJSON(w, http.StatusOK, CompleteResponse{
		Completed:    true,
		NewlyAwarded: newlyAwarded,
	})
}
