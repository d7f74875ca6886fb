// Package api implements the devnotes REST API using chi.
package api

import (
	"net/http"
	"strings"

	"github.com/starford/devnotes/internal/workspace"
)

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WorkspaceMiddleware puts ws into every request context.
func WorkspaceMiddleware(ws *workspace.Workspace) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(workspace.WithContext(r.Context(), ws)))
		})
	}
}

// MustWorkspace returns the request's workspace. Handlers mounted without
// WorkspaceMiddleware panic here; chi's Recoverer turns that into a 500.
func MustWorkspace(r *http.Request) *workspace.Workspace {
	return workspace.MustFromContext(r.Context())
}
