package handlers

import (
	"net/http"

	"storynest/internal/repository"
)

// ReaderHandler serves the authenticated reader's own profile
type ReaderHandler struct {
	readerRepo *repository.ReaderRepository
}

// NewReaderHandler creates a new reader handler
func NewReaderHandler(readerRepo *repository.ReaderRepository) *ReaderHandler {
	return &ReaderHandler{readerRepo: readerRepo}
}

// ProfileResponse is the reader's own profile with dashboard statistics
type ProfileResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	AvatarColor    string `json:"avatarColor"`
	BooksStarted   int    `json:"booksStarted"`
	BooksCompleted int    `json:"booksCompleted"`
	AwardCount     int    `json:"awardCount"`
}

// Me handles GET /api/readers/me
func (h *ReaderHandler) Me(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	stats, err := h.readerRepo.GetWithStats(readerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load profile", "", err)
		return
	}
	if stats == nil {
		respondWithError(w, http.StatusNotFound, "Reader not found", "", nil)
		return
	}

	respondJSON(w, http.StatusOK, ProfileResponse{
		ID:             stats.Reader.ID,
		Name:           stats.Reader.Name,
		AvatarColor:    stats.Reader.AvatarColor,
		BooksStarted:   stats.BooksStarted,
		BooksCompleted: stats.BooksCompleted,
		AwardCount:     stats.AwardCount,
	})
}
