package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devnotes/internal/checksum"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/search"
)

// Handler holds the record route handlers. The workspace comes from the
// request context.
type Handler struct{}

// NewHandler creates a new Handler.
func NewHandler() *Handler {
	return &Handler{}
}

// recordID parses the {id} URL parameter.
func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
		return 0, false
	}
	return id, true
}

func listOptions(r *http.Request) search.Options {
	q := r.URL.Query()
	return search.Options{
		Query:   q.Get("q"),
		Tag:     strings.TrimSpace(q.Get("tag")),
		Type:    models.NoteType(q.Get("type")),
		Project: strings.TrimSpace(q.Get("project")),
	}
}

// writeListing writes v with an ETag derived from its encoding and answers
// If-None-Match with 304.
func writeListing(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, r, "encode listing", err)
		return
	}
	etag := fmt.Sprintf("%q", checksum.Short(data))
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(append(data, '\n')); err != nil {
		slog.Error("api: write listing failed", slog.String("error", err.Error()))
	}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes, most recent first, with optional filtering
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive text query"
//	@Param			tag		query		string	false	"Exact tag"
//	@Param			type	query		string	false	"Note type"
//	@Success		200		{object}	NoteListResponse
//	@Success		304		"Listing unchanged (If-None-Match)"
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	all := MustWorkspace(r).Notes.List()
	notes := search.Notes(all, listOptions(r))
	writeListing(w, r, NoteListResponse{Notes: notes, Count: len(notes), Total: len(all)})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a single note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		int	true	"Note id"
//	@Success		200	{object}	models.Note
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	note, err := MustWorkspace(r).Notes.Get(id)
	if err != nil {
		writeError(w, r, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// CreateNote handles POST /api/notes.
//
//	@Summary		Create a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.Note	true	"Note to create; id and createdAt are ignored"
//	@Success		201		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	var in models.Note
	if !decodeJSON(w, r, &in) {
		return
	}
	note, err := MustWorkspace(r).Notes.Add(in)
	if err != nil {
		writeError(w, r, "create note", err)
		return
	}
	writeJSON(w, http.StatusCreated, note)
}

// UpdateNote handles PUT /api/notes/{id}.
//
//	@Summary		Replace a note
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int			true	"Note id"
//	@Param			body	body		models.Note	true	"Full note; createdAt is kept from the stored record"
//	@Success		200		{object}	models.Note
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [put]
func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var in models.Note
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = id
	note, err := MustWorkspace(r).Notes.Update(in)
	if err != nil {
		writeError(w, r, "update note", err)
		return
	}
	writeJSON(w, http.StatusOK, note)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path	int	true	"Note id"
//	@Success		204	"Note deleted"
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := MustWorkspace(r).Notes.Delete(id); err != nil {
		writeError(w, r, "delete note", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// NoteTypes handles GET /api/notes/types.
func (h *Handler) NoteTypes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, NoteTypesResponse{Types: models.NoteTypes})
}

// Languages handles GET /api/notes/languages.
func (h *Handler) Languages(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, LanguagesResponse{Languages: models.Languages})
}

// ListErrors handles GET /api/errors.
//
//	@Summary		List error logs, most recent first, with optional filtering
//	@Tags			errors
//	@Produce		json
//	@Param			q		query		string	false	"Case-insensitive text query"
//	@Param			tag		query		string	false	"Exact tag"
//	@Param			project	query		string	false	"Project (case-insensitive)"
//	@Success		200		{object}	ErrorLogListResponse
//	@Security		BearerAuth
//	@Router			/errors [get]
func (h *Handler) ListErrors(w http.ResponseWriter, r *http.Request) {
	all := MustWorkspace(r).Errors.List()
	logs := search.ErrorLogs(all, listOptions(r))
	writeListing(w, r, ErrorLogListResponse{Errors: logs, Count: len(logs), Total: len(all)})
}

// GetError handles GET /api/errors/{id}.
func (h *Handler) GetError(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	e, err := MustWorkspace(r).Errors.Get(id)
	if err != nil {
		writeError(w, r, "get error log", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// CreateError handles POST /api/errors. The body may carry the raw error text
// as "message" or "error".
//
//	@Summary		Log an error and its solution
//	@Tags			errors
//	@Accept			json
//	@Produce		json
//	@Param			body	body		models.ErrorLog	true	"Error log to create"
//	@Success		201		{object}	models.ErrorLog
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/errors [post]
func (h *Handler) CreateError(w http.ResponseWriter, r *http.Request) {
	var in models.ErrorLog
	if !decodeJSON(w, r, &in) {
		return
	}
	e, err := MustWorkspace(r).Errors.Add(in)
	if err != nil {
		writeError(w, r, "create error log", err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

// UpdateError handles PUT /api/errors/{id}.
func (h *Handler) UpdateError(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	var in models.ErrorLog
	if !decodeJSON(w, r, &in) {
		return
	}
	in.ID = id
	e, err := MustWorkspace(r).Errors.Update(in)
	if err != nil {
		writeError(w, r, "update error log", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

// DeleteError handles DELETE /api/errors/{id}.
func (h *Handler) DeleteError(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	if err := MustWorkspace(r).Errors.Delete(id); err != nil {
		writeError(w, r, "delete error log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
