// Package watcher reloads stores when their slot files are changed by
// another process (a text editor, a sync tool, a second devnotes instance).
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/storage"
	"github.com/starford/devnotes/internal/workspace"
)

// DefaultDebounce is how long the watcher waits for a burst of events on the
// same slot to settle before reloading it.
const DefaultDebounce = 150 * time.Millisecond

// EventCallback is called after a store was replaced from its slot.
type EventCallback func(entity string)

// Watch starts an fsnotify watcher on the slot directory and processes change
// events until ctx is cancelled. Writes made by the stores themselves are
// recognised by checksum inside Reload and do not trigger a callback.
func Watch(ctx context.Context, slots *storage.FS, ws *workspace.Workspace, debounce time.Duration, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(slots.Root()); err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	logger.Info("watcher: started", slog.String("root", slots.Root()))

	pending := make(map[string]struct{})
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			logger.Info("watcher: stopped")
			return nil

		case <-timer.C:
			for key := range pending {
				reload(ws, key, logger, cb)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			key, isSlot := slots.KeyFor(ev.Name)
			if !isSlot {
				continue
			}
			if _, tracked := ws.ReloaderFor(key); !tracked {
				continue
			}
			pending[key] = struct{}{}
			timer.Reset(debounce)

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func reload(ws *workspace.Workspace, key string, logger *slog.Logger, cb EventCallback) {
	r, ok := ws.ReloaderFor(key)
	if !ok {
		return
	}
	changed, err := r.Reload()
	if err != nil {
		level := slog.LevelError
		if errors.Is(err, apperr.ErrCorrupt) {
			level = slog.LevelWarn
		}
		logger.Log(context.Background(), level, "watcher: reload failed",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return
	}
	if !changed {
		return
	}
	logger.Debug("watcher: reloaded", slog.String("key", key))
	if cb != nil {
		cb(r.Name())
	}
}
