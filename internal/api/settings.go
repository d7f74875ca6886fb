package api

import (
	"net/http"
	"strings"

	"github.com/starford/devnotes/internal/settings"
)

// GetAPIKey handles GET /api/settings/api-key. Only the masked key is returned.
//
//	@Summary		Report whether an API key is stored
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	APIKeyResponse
//	@Security		BearerAuth
//	@Router			/settings/api-key [get]
func (h *Handler) GetAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := MustWorkspace(r).Settings.APIKey()
	if err != nil {
		writeError(w, r, "read api key", err)
		return
	}
	writeJSON(w, http.StatusOK, APIKeyResponse{Set: key != "", Masked: settings.Mask(key)})
}

// PutAPIKey handles PUT /api/settings/api-key.
//
//	@Summary		Store the API key
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		APIKeyRequest	true	"Key to store"
//	@Success		200		{object}	APIKeyResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/api-key [put]
func (h *Handler) PutAPIKey(w http.ResponseWriter, r *http.Request) {
	var req APIKeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	key := strings.TrimSpace(req.Key)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("key is required"))
		return
	}
	if err := MustWorkspace(r).Settings.SetAPIKey(key); err != nil {
		writeError(w, r, "store api key", err)
		return
	}
	writeJSON(w, http.StatusOK, APIKeyResponse{Set: true, Masked: settings.Mask(key)})
}

// DeleteAPIKey handles DELETE /api/settings/api-key.
func (h *Handler) DeleteAPIKey(w http.ResponseWriter, r *http.Request) {
	if err := MustWorkspace(r).Settings.ClearAPIKey(); err != nil {
		writeError(w, r, "clear api key", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
