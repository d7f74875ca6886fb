package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/devnotes/internal/attachments"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/testutil"
	"github.com/starford/devnotes/internal/workspace"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

// testEnv sets up a temp slot directory, workspace and router.
// An empty authToken means disabled auth mode.
func testEnv(t *testing.T, authToken string) (*workspace.Workspace, http.Handler) {
	t.Helper()
	ws, router, _ := testEnvWithFiles(t, authToken)
	return ws, router
}

func testEnvWithFiles(t *testing.T, authToken string) (*workspace.Workspace, http.Handler, *attachments.Dir) {
	t.Helper()
	dir, slots := testutil.TestSlots(t)
	ws := testutil.TestWorkspace(t, slots)
	files, err := attachments.NewDir(filepath.Join(dir, "attachments"))
	require.NoError(t, err)
	return ws, NewRouter(ws, files, authToken != "", authToken, nil), files
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(method, target, &buf))
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestCreateAndGetNote(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]any{
		"title":   "Hello",
		"content": "fmt.Println(1)",
		"tags":    []string{"go", "go", " "},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[models.Note](t, w)
	require.NotZero(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())
	assert.Equal(t, models.TypeCodeSnippet, created.Type)
	assert.Equal(t, models.DefaultLanguage, created.Language)
	assert.Equal(t, []string{"go"}, created.Tags)

	w = do(t, router, http.MethodGet, fmt.Sprintf("/notes/%d", created.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello", decode[models.Note](t, w).Title)
}

func TestCreateNote_Validation(t *testing.T) {
	ws, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/notes", map[string]any{"title": "  ", "content": ""})
	require.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[errResponse](t, w)
	assert.NotEmpty(t, resp.Fields["title"])
	assert.NotEmpty(t, resp.Fields["content"])
	assert.Zero(t, ws.Notes.Len(), "invalid note reached the store")

	w = do(t, router, http.MethodPost, "/notes", map[string]any{"title": "t", "content": "c", "type": "Recipe"})
	assert.Equal(t, http.StatusBadRequest, w.Code, "unknown type")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/notes", strings.NewReader("{")))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "bad json")
}

func TestListNotes_FiltersAndETag(t *testing.T) {
	ws, router := testEnv(t, "")
	for _, n := range []models.Note{
		{Title: "Foo", Content: "x", Tags: []string{"go"}},
		{Title: "bar", Content: "y", Type: models.TypeTool},
	} {
		_, err := ws.Notes.Add(n)
		require.NoError(t, err)
	}

	w := do(t, router, http.MethodGet, "/notes", nil)
	require.Equal(t, http.StatusOK, w.Code)
	all := decode[NoteListResponse](t, w)
	assert.Equal(t, 2, all.Total)
	assert.Equal(t, 2, all.Count)
	assert.Equal(t, "bar", all.Notes[0].Title, "most recent first")
	etag := w.Header().Get("ETag")
	require.NotEmpty(t, etag)

	cases := map[string]struct {
		query string
		title string
	}{
		"free text": {"q=FOO", "Foo"},
		"type":      {"type=Tool", "bar"},
		"tag":       {"tag=go", "Foo"},
	}
	for name, tc := range cases {
		w := do(t, router, http.MethodGet, "/notes?"+tc.query, nil)
		got := decode[NoteListResponse](t, w)
		if assert.Equal(t, 1, got.Count, name) {
			assert.Equal(t, tc.title, got.Notes[0].Title, name)
		}
		assert.Equal(t, 2, got.Total, name)
	}

	req := httptest.NewRequest(http.MethodGet, "/notes", nil)
	req.Header.Set("If-None-Match", etag)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestUpdateNote(t *testing.T) {
	ws, router := testEnv(t, "")
	n, err := ws.Notes.Add(models.Note{Title: "old", Content: "x"})
	require.NoError(t, err)

	w := do(t, router, http.MethodPut, fmt.Sprintf("/notes/%d", n.ID), map[string]any{
		"title": "new", "content": "y", "createdAt": "2001-01-01T00:00:00Z",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got, err := ws.Notes.Get(n.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", got.Title)
	assert.True(t, got.CreatedAt.Equal(n.CreatedAt), "createdAt must not change")

	w = do(t, router, http.MethodPut, "/notes/999", map[string]any{"title": "t", "content": "c"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteNote(t *testing.T) {
	ws, router := testEnv(t, "")
	n, err := ws.Notes.Add(models.Note{Title: "bye", Content: "x"})
	require.NoError(t, err)

	w := do(t, router, http.MethodDelete, fmt.Sprintf("/notes/%d", n.ID), nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, ws.Notes.Len())

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/notes/%d", n.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "second delete")

	w = do(t, router, http.MethodGet, "/notes/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "bad id")
}

func TestNoteTypesAndLanguages(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/notes/types", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[NoteTypesResponse](t, w).Types, len(models.NoteTypes))

	w = do(t, router, http.MethodGet, "/notes/languages", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, decode[LanguagesResponse](t, w).Languages)
}

func TestErrorLogs(t *testing.T) {
	ws, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/errors", map[string]any{
		"title":   "nil map",
		"error":   "assignment to entry in nil map",
		"project": "Billing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	e := decode[models.ErrorLog](t, w)
	assert.Equal(t, "assignment to entry in nil map", e.Message, "error alias")
	_, err := ws.Errors.Add(models.ErrorLog{Title: "other", Message: "m", Project: "web"})
	require.NoError(t, err)

	w = do(t, router, http.MethodGet, "/errors?project=billing", nil)
	list := decode[ErrorLogListResponse](t, w)
	require.Equal(t, 1, list.Count)
	assert.Equal(t, 2, list.Total)
	assert.Equal(t, e.ID, list.Errors[0].ID)

	w = do(t, router, http.MethodPut, fmt.Sprintf("/errors/%d", e.ID), map[string]any{
		"title": "nil map", "message": "assignment to entry in nil map", "solution": "make() it",
	})
	require.Equal(t, http.StatusOK, w.Code)
	got, err := ws.Errors.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, "make() it", got.Solution)

	w = do(t, router, http.MethodGet, fmt.Sprintf("/errors/%d", e.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, router, http.MethodDelete, fmt.Sprintf("/errors/%d", e.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodPost, "/errors", map[string]any{"title": "no message"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPIKeyIsMasked(t *testing.T) {
	ws, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/settings/api-key", nil)
	assert.False(t, decode[APIKeyResponse](t, w).Set, "fresh workspace reports a key")

	w = do(t, router, http.MethodPut, "/settings/api-key", APIKeyRequest{Key: " sk-secret-1234 "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "secret", "response leaks key")
	key, err := ws.Settings.APIKey()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret-1234", key)

	w = do(t, router, http.MethodGet, "/settings/api-key", nil)
	resp := decode[APIKeyResponse](t, w)
	assert.True(t, resp.Set)
	assert.True(t, strings.HasSuffix(resp.Masked, "1234"), resp.Masked)
	assert.NotContains(t, resp.Masked, "secret")

	w = do(t, router, http.MethodPut, "/settings/api-key", APIKeyRequest{Key: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code, "blank key")

	w = do(t, router, http.MethodDelete, "/settings/api-key", nil)
	require.Equal(t, http.StatusNoContent, w.Code)
	key, err = ws.Settings.APIKey()
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestAuthMiddleware(t *testing.T) {
	_, router := testEnv(t, "secret")

	cases := map[string]struct {
		header string
		want   int
	}{
		"no token":    {"", http.StatusUnauthorized},
		"wrong token": {"Bearer wrong", http.StatusUnauthorized},
		"valid token": {"Bearer secret", http.StatusOK},
	}
	for name, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/notes", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, tc.want, rec.Code, name)
	}
}

func uploadRequest(t *testing.T, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/attachments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestUploadAttachesScreenshot(t *testing.T) {
	ws, router, files := testEnvWithFiles(t, "")
	e, err := ws.Errors.Add(models.ErrorLog{Title: "crash", Message: "panic"})
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, uploadRequest(t, "crash.png", pngBytes, map[string]string{"errorId": fmt.Sprint(e.ID)}))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decode[AttachmentUploadResponse](t, w)
	require.Equal(t, "/attachments/crash.png", resp.URL)
	require.NotNil(t, resp.ErrorLog)

	got, err := ws.Errors.Get(e.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.URL, got.ScreenshotURL)
	assert.FileExists(t, filepath.Join(files.Root(), "crash.png"))

	// Served at the root, outside the API group.
	root := chi.NewRouter()
	MountAttachments(root, files)
	rec := httptest.NewRecorder()
	root.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attachments/crash.png", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, pngBytes, rec.Body.Bytes())
}

func TestUploadRejects(t *testing.T) {
	_, router := testEnv(t, "")

	upload := func(name string, data []byte, fields map[string]string) int {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, uploadRequest(t, name, data, fields))
		return w.Code
	}

	assert.Equal(t, http.StatusUnsupportedMediaType, upload("notes.txt", []byte("hello"), nil))
	assert.Equal(t, http.StatusNotFound, upload("a.png", pngBytes, map[string]string{"errorId": "42"}), "unknown error log")
	require.Equal(t, http.StatusCreated, upload("b.png", pngBytes, nil))
	assert.Equal(t, http.StatusConflict, upload("b.png", pngBytes, nil), "duplicate name")
}

func TestMissingWorkspacePanicsIntoServerError(t *testing.T) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/notes", NewHandler().ListNotes)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/notes", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
