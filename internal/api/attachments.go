package api

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devnotes/internal/attachments"
)

// AttachmentHandler serves and accepts screenshot files.
type AttachmentHandler struct {
	dir *attachments.Dir
}

// NewAttachmentHandler creates a handler over the attachments directory.
func NewAttachmentHandler(dir *attachments.Dir) *AttachmentHandler {
	return &AttachmentHandler{dir: dir}
}

// ServeFile handles GET /attachments/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	abs, err := h.dir.Path(chi.URLParam(r, "filename"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments (multipart/form-data, field "file").
// An optional "errorId" field attaches the stored file to that error log as
// its screenshot.
//
//	@Summary		Upload a screenshot
//	@Tags			attachments
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"Image file"
//	@Param			errorId	formData	int		false	"Error log to attach the screenshot to"
//	@Success		201		{object}	AttachmentUploadResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		409		{object}	errResponse
//	@Failure		415		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/attachments [post]
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, attachments.MaxSize+1<<20)

	if err := r.ParseMultipartForm(attachments.MaxSize); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	var errorID int64
	if raw := strings.TrimSpace(r.FormValue("errorId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorBody("invalid errorId"))
			return
		}
		errorID = id
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	ws := MustWorkspace(r)
	if errorID != 0 {
		if _, err := ws.Errors.Get(errorID); err != nil {
			writeError(w, r, "attach screenshot", err)
			return
		}
	}

	saved, err := h.dir.Save(header.Filename, file)
	if err != nil {
		writeError(w, r, "upload attachment", err)
		return
	}
	resp := AttachmentUploadResponse{Filename: saved.Filename, Size: saved.Size, URL: saved.URL}

	if errorID != 0 {
		e, err := ws.Errors.Get(errorID)
		if err == nil {
			e.ScreenshotURL = saved.URL
			e, err = ws.Errors.Update(e)
		}
		if err != nil {
			writeError(w, r, "attach screenshot", err)
			return
		}
		resp.ErrorLog = &e
	}
	writeJSON(w, http.StatusCreated, resp)
}
