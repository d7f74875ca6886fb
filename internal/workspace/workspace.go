// Package workspace wires the note store, the error log store and the
// settings slot over one storage provider, with explicit open and close.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/collection"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/settings"
	"github.com/starford/devnotes/internal/storage"
	"github.com/starford/devnotes/internal/store"
)

// Workspace owns both stores and the provider they persist to.
type Workspace struct {
	Provider storage.Provider
	Notes    *store.Store[models.Note]
	Errors   *store.Store[models.ErrorLog]
	Settings *settings.Settings
}

// Open opens the provider for driver/path and loads both stores from it.
func Open(driver, path string, logger *slog.Logger) (*Workspace, error) {
	p, err := storage.Open(driver, path)
	if err != nil {
		return nil, err
	}
	ws, err := New(p, logger)
	if err != nil {
		_ = p.Close()
		return nil, err
	}
	return ws, nil
}

// New loads both stores from p. Extra options are applied to both stores.
func New(p storage.Provider, logger *slog.Logger, opts ...store.Option) (*Workspace, error) {
	if logger == nil {
		logger = slog.Default()
	}
	noteOpts := append([]store.Option{store.WithName("note"), store.WithLogger(logger)}, opts...)
	notes, err := store.New(collection.New[models.Note](p, models.NotesKey), noteOpts...)
	if err != nil {
		return nil, fmt.Errorf("workspace: load notes: %w", err)
	}
	errOpts := append([]store.Option{store.WithName("error"), store.WithLogger(logger)}, opts...)
	errs, err := store.New(collection.New[models.ErrorLog](p, models.ErrorsKey), errOpts...)
	if err != nil {
		return nil, fmt.Errorf("workspace: load error logs: %w", err)
	}
	return &Workspace{
		Provider: p,
		Notes:    notes,
		Errors:   errs,
		Settings: settings.New(p, models.APIKeyKey),
	}, nil
}

// Reloader re-reads one slot into its store.
type Reloader interface {
	Name() string
	Reload() (bool, error)
}

// ReloaderFor returns the store persisted under slot key.
func (w *Workspace) ReloaderFor(key string) (Reloader, bool) {
	switch key {
	case models.NotesKey:
		return w.Notes, true
	case models.ErrorsKey:
		return w.Errors, true
	}
	return nil, false
}

// Close closes both stores and the provider.
func (w *Workspace) Close() error {
	return errors.Join(w.Notes.Close(), w.Errors.Close(), w.Provider.Close())
}

type ctxKey struct{}

// WithContext returns a copy of ctx carrying w.
func WithContext(ctx context.Context, w *Workspace) context.Context {
	return context.WithValue(ctx, ctxKey{}, w)
}

// FromContext returns the workspace carried by ctx.
func FromContext(ctx context.Context) (*Workspace, bool) {
	w, ok := ctx.Value(ctxKey{}).(*Workspace)
	return w, ok && w != nil
}

// MustFromContext is FromContext for code that can only run inside a
// workspace scope. A missing workspace is a wiring defect and panics.
func MustFromContext(ctx context.Context) *Workspace {
	w, ok := FromContext(ctx)
	if !ok {
		panic(fmt.Errorf("workspace: accessed outside its scope: %w", apperr.ErrMissingStore))
	}
	return w
}
