package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/markdown"
	"github.com/starford/devnotes/internal/workspace"
)

// ImportStats reports what Import did with the matched files.
type ImportStats struct {
	Imported int
	Skipped  int
	Invalid  int
}

// Export writes every note to dir as Markdown.
func Export(_ context.Context, dir string, opts ...Option) (int, error) {
	_, logger, ws, err := setup(opts)
	if err != nil {
		return 0, err
	}
	defer closeWorkspace(ws, logger)

	n, err := markdown.Export(dir, ws.Notes.List())
	if err != nil {
		return n, err
	}
	logger.Info("Notes exported", slog.String("dir", dir), slog.Int("count", n))
	return n, nil
}

// Import adds the Markdown files under dir matching glob as notes.
func Import(ctx context.Context, dir, glob string, opts ...Option) (ImportStats, error) {
	_, logger, ws, err := setup(opts)
	if err != nil {
		return ImportStats{}, err
	}
	defer closeWorkspace(ws, logger)

	files, err := markdown.Collect(dir, glob)
	if err != nil {
		return ImportStats{}, err
	}
	return importNotes(ctx, ws, files, logger)
}

// importNotes adds each parsed file through the note store. Files whose
// frontmatter id is already present are skipped, so importing an export
// back into the same workspace is a no-op. Invalid notes are logged and
// skipped; any other store error aborts.
func importNotes(ctx context.Context, ws *workspace.Workspace, files []markdown.File, logger *slog.Logger) (ImportStats, error) {
	var stats ImportStats
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		if f.Note.ID != 0 {
			if _, err := ws.Notes.Get(f.Note.ID); err == nil {
				stats.Skipped++
				continue
			}
		}
		if _, err := ws.Notes.Add(f.Note); err != nil {
			if errors.Is(err, apperr.ErrValidation) {
				logger.Warn("Import skipped invalid note",
					slog.String("path", f.Path),
					slog.String("error", err.Error()))
				stats.Invalid++
				continue
			}
			return stats, fmt.Errorf("import %s: %w", f.Path, err)
		}
		stats.Imported++
	}
	logger.Info("Notes imported",
		slog.Int("imported", stats.Imported),
		slog.Int("skipped", stats.Skipped),
		slog.Int("invalid", stats.Invalid))
	return stats, nil
}
