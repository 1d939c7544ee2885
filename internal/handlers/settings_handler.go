package handlers

import (
	"net/http"

	"storynest/internal/repository"
)

// SettingsHandler serves per-reader playback preferences such as read-aloud
// and background music toggles. Settings are opaque string pairs; the player
// owns their meaning.
type SettingsHandler struct {
	settingsRepo *repository.SettingsRepository
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsRepo *repository.SettingsRepository) *SettingsHandler {
	return &SettingsHandler{settingsRepo: settingsRepo}
}

// List handles GET /api/readers/me/settings
func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())

	settings, err := h.settingsRepo.GetAll(readerID)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to load settings", "", err)
		return
	}
	respondJSON(w, http.StatusOK, settings)
}

// Set handles PUT /api/readers/me/settings/{key}
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	readerID := ReaderFromContext(r.Context())
	key := r.PathValue("key")
	if key == "" || len(key) > 64 {
		respondWithError(w, http.StatusBadRequest, "Invalid setting key", "", nil)
		return
	}

	var req struct {
		Value string `json:"value"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", "", err)
		return
	}
	if len(req.Value) > 1024 {
		respondWithError(w, http.StatusBadRequest, "Setting value too long", "", nil)
		return
	}

	if err := h.settingsRepo.Set(readerID, key, req.Value); err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to save setting", "", err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{key: req.Value})
}
