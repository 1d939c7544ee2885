package handlers

import (
	"errors"
	"net/http"

	"storynest/internal/models"
	"storynest/internal/service"
)

// CheckpointHandler serves reading progress persistence
type CheckpointHandler struct {
	checkpointService *service.CheckpointService
}

// NewCheckpointHandler creates a new checkpoint handler
func NewCheckpointHandler(checkpointService *service.CheckpointService) *CheckpointHandler {
	return &CheckpointHandler{checkpointService: checkpointService}
}

// Get handles GET /api/books/{book}/checkpoint. A reader who has not
// started the book gets 404 so the client starts from page one.
func (h *CheckpointHandler) Get(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	checkpoint, err := h.checkpointService.GetCheckpoint(readerID, r.PathValue("book"))
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to load checkpoint", "", err)
		return
	}
	if checkpoint == nil {
		respondWithError(w, http.StatusNotFound, "No checkpoint", "", nil)
		return
	}

	respondJSON(w, http.StatusOK, toCheckpointResponse(checkpoint))
}

// Save handles PUT /api/books/{book}/checkpoint. The body is a partial
// update; fields left out are untouched. Saves are idempotent and the
// stored percentComplete never decreases.
func (h *CheckpointHandler) Save(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	var req CheckpointRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	patch := models.CheckpointPatch{
		PageNumber:       req.PageNumber,
		Answers:          req.Answers,
		QuizState:        req.QuizState,
		AudioPositionSec: req.AudioPositionSec,
		PercentComplete:  req.PercentComplete,
	}

	checkpoint, err := h.checkpointService.SaveCheckpoint(readerID, r.PathValue("book"), patch)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusBadRequest, err.Error(), "Checkpoint save rejected", err)
		return
	}

	respondJSON(w, http.StatusOK, toCheckpointResponse(checkpoint))
}

// Reset handles POST /api/books/{book}/checkpoint/reset. Destroying a
// reader's progress requires the family's parent PIN.
func (h *CheckpointHandler) Reset(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	var req ResetRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}

	err := h.checkpointService.ResetProgress(readerID, r.PathValue("book"), req.Pin)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPin) {
			respondWithError(w, http.StatusForbidden, "Invalid parent PIN", "", nil)
			return
		}
		if errors.Is(err, service.ErrBookNotFound) {
			respondWithError(w, http.StatusNotFound, "Book not found", "", nil)
			return
		}
		respondWithError(w, http.StatusInternalServerError, "Failed to reset progress", "", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
