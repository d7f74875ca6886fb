package api

import (
	"github.com/starford/devnotes/internal/models"
)

// NoteListResponse wraps a filtered note listing. Total counts the whole
// collection, Count the records that passed the filters.
type NoteListResponse struct {
	Notes []models.Note `json:"notes" validate:"required"`
	Count int           `json:"count" example:"3" validate:"required"`
	Total int           `json:"total" example:"42" validate:"required"`
}

// ErrorLogListResponse wraps a filtered error log listing.
type ErrorLogListResponse struct {
	Errors []models.ErrorLog `json:"errors" validate:"required"`
	Count  int               `json:"count" example:"3" validate:"required"`
	Total  int               `json:"total" example:"42" validate:"required"`
}

// NoteTypesResponse lists the accepted note types.
type NoteTypesResponse struct {
	Types []models.NoteType `json:"types" validate:"required"`
}

// LanguagesResponse lists the language suggestions for notes.
type LanguagesResponse struct {
	Languages []models.Language `json:"languages" validate:"required"`
}

// APIKeyRequest is the request body for storing the API key.
type APIKeyRequest struct {
	Key string `json:"key" example:"sk-..." validate:"required"`
}

// APIKeyResponse never carries the full key.
type APIKeyResponse struct {
	Set    bool   `json:"set" example:"true"`
	Masked string `json:"masked" example:"********abcd"`
}

// AttachmentUploadResponse is returned after a successful screenshot upload.
// ErrorLog is set when the upload was attached to an error log.
type AttachmentUploadResponse struct {
	Filename string           `json:"filename" example:"crash.png" validate:"required"`
	Size     int64            `json:"size" example:"12345" validate:"required"`
	URL      string           `json:"url" example:"/attachments/crash.png" validate:"required"`
	ErrorLog *models.ErrorLog `json:"errorLog,omitempty"`
}
