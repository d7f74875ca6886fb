package markdown

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/starford/devnotes/internal/models"
)

// DefaultGlob matches every Markdown file below the import directory.
const DefaultGlob = "**/*.md"

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Filename returns the export file name for n: "<id>-<slug>.md".
func Filename(n models.Note) string {
	slug := strings.Trim(slugRe.ReplaceAllString(strings.ToLower(n.Title), "-"), "-")
	if len(slug) > 60 {
		slug = strings.TrimRight(slug[:60], "-")
	}
	if slug == "" {
		return fmt.Sprintf("%d.md", n.ID)
	}
	return fmt.Sprintf("%d-%s.md", n.ID, slug)
}

// Export writes every note into dir, one file per note. Existing files with
// the same name are overwritten.
func Export(dir string, notes []models.Note) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("markdown: export: %w", err)
	}
	for i, n := range notes {
		data, err := Render(n)
		if err != nil {
			return i, err
		}
		if err := os.WriteFile(filepath.Join(dir, Filename(n)), data, 0o644); err != nil {
			return i, fmt.Errorf("markdown: export %d: %w", n.ID, err)
		}
	}
	return len(notes), nil
}

// File is a parsed import candidate.
type File struct {
	Path string
	Note models.Note
}

// Collect parses every file under dir matching pattern (doublestar syntax,
// relative to dir). Hidden files and directories are skipped.
func Collect(dir, pattern string) ([]File, error) {
	if pattern == "" {
		pattern = DefaultGlob
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("markdown: invalid glob %q", pattern)
	}

	fsys := os.DirFS(dir)
	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("markdown: glob: %w", err)
	}

	var out []File
	for _, rel := range matches {
		if hidden(rel) {
			continue
		}
		data, err := fs.ReadFile(fsys, rel)
		if err != nil {
			return nil, fmt.Errorf("markdown: read %s: %w", rel, err)
		}
		n, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("markdown: parse %s: %w", rel, err)
		}
		if n.Title == "" {
			n.Title = strings.TrimSuffix(filepath.Base(rel), filepath.Ext(rel))
		}
		out = append(out, File{Path: rel, Note: n})
	}
	return out, nil
}

func hidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
