// Package search derives filtered views of a collection.
package search

import (
	"strings"

	"github.com/starford/devnotes/internal/models"
)

// Searchable exposes the text a free-text query is matched against.
type Searchable interface {
	SearchFields() []string
}

// Filter returns every record where the lower-cased query is a substring of at
// least one lower-cased search field, in collection order. An empty or
// whitespace-only query returns records itself. The input is never modified.
func Filter[T Searchable](records []T, query string) []T {
	if strings.TrimSpace(query) == "" {
		return records
	}
	q := strings.ToLower(query)
	out := make([]T, 0, len(records))
	for _, r := range records {
		if matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func matches[T Searchable](r T, lowerQuery string) bool {
	for _, f := range r.SearchFields() {
		if strings.Contains(strings.ToLower(f), lowerQuery) {
			return true
		}
	}
	return false
}

// Options narrows a listing beyond the free-text query.
// Zero-valued fields do not filter.
type Options struct {
	Query   string
	Tag     string
	Type    models.NoteType
	Project string
}

// Notes applies opts to a note collection.
func Notes(notes []models.Note, opts Options) []models.Note {
	out := Filter(notes, opts.Query)
	if opts.Tag == "" && opts.Type == "" {
		return out
	}
	return where(out, func(n models.Note) bool {
		return (opts.Tag == "" || models.HasTag(n.Tags, opts.Tag)) &&
			(opts.Type == "" || n.Type == opts.Type)
	})
}

// ErrorLogs applies opts to an error log collection.
func ErrorLogs(logs []models.ErrorLog, opts Options) []models.ErrorLog {
	out := Filter(logs, opts.Query)
	if opts.Tag == "" && opts.Project == "" {
		return out
	}
	return where(out, func(e models.ErrorLog) bool {
		return (opts.Tag == "" || models.HasTag(e.Tags, opts.Tag)) &&
			(opts.Project == "" || strings.EqualFold(e.Project, opts.Project))
	})
}

func where[T any](records []T, keep func(T) bool) []T {
	out := make([]T, 0, len(records))
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
