package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devnotes/internal/attachments"
	"github.com/starford/devnotes/internal/workspace"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(ws *workspace.Workspace, files *attachments.Dir, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler()
	ah := NewAttachmentHandler(files)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	r.Use(WorkspaceMiddleware(ws))

	// Notes.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.CreateNote)
	r.Get("/notes/types", h.NoteTypes)
	r.Get("/notes/languages", h.Languages)
	r.Get("/notes/{id}", h.GetNote)
	r.Put("/notes/{id}", h.UpdateNote)
	r.Delete("/notes/{id}", h.DeleteNote)

	// Error logs.
	r.Get("/errors", h.ListErrors)
	r.Post("/errors", h.CreateError)
	r.Get("/errors/{id}", h.GetError)
	r.Put("/errors/{id}", h.UpdateError)
	r.Delete("/errors/{id}", h.DeleteError)

	// Settings.
	r.Get("/settings/api-key", h.GetAPIKey)
	r.Put("/settings/api-key", h.PutAPIKey)
	r.Delete("/settings/api-key", h.DeleteAPIKey)

	// Screenshot upload (auth-protected).
	r.Post("/attachments", ah.Upload)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}

// MountAttachments serves stored attachments at /attachments/{filename},
// outside the API auth group so they can be embedded as images.
func MountAttachments(r chi.Router, files *attachments.Dir) {
	r.Get("/attachments/{filename}", NewAttachmentHandler(files).ServeFile)
}
