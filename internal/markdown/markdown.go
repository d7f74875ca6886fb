// Package markdown converts notes to and from Markdown files with YAML
// frontmatter, for export to and import from a plain directory.
package markdown

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/starford/devnotes/internal/models"
)

var tagRe = regexp.MustCompile(`(?:^|\s)#([A-Za-z][A-Za-z0-9_/-]*)`)

const delim = "---"

// frontmatter is the YAML header written above every exported note.
type frontmatter struct {
	ID            int64    `yaml:"id,omitempty"`
	Title         string   `yaml:"title,omitempty"`
	Type          string   `yaml:"type,omitempty"`
	Language      string   `yaml:"language,omitempty"`
	UseCodeEditor bool     `yaml:"useCodeEditor,omitempty"`
	Tags          []string `yaml:"tags,omitempty"`
	CreatedAt     string   `yaml:"createdAt,omitempty"`
}

// Render returns n as a Markdown document: frontmatter, then the content
// exactly as stored.
func Render(n models.Note) ([]byte, error) {
	fm := frontmatter{
		ID:            n.ID,
		Title:         n.Title,
		Type:          string(n.Type),
		Language:      n.Language,
		UseCodeEditor: n.UseCodeEditor,
		Tags:          n.Tags,
	}
	if !n.CreatedAt.IsZero() {
		fm.CreatedAt = n.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return nil, fmt.Errorf("markdown: render %d: %w", n.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString(delim + "\n")
	buf.Write(head)
	buf.WriteString(delim + "\n")
	buf.WriteString(n.Content)
	return buf.Bytes(), nil
}

// Parse reads a Markdown document into a note. The title comes from the
// frontmatter, else from the first H1 heading. A document with frontmatter
// takes its tags from there only; a bare document collects inline #tags
// from the body. Everything after the closing delimiter line is content,
// byte for byte. The result is not validated.
func Parse(data []byte) (models.Note, error) {
	fm, body, hasFrontmatter := splitFrontmatter(data)

	n := models.Note{
		ID:            fm.ID,
		Title:         strings.TrimSpace(fm.Title),
		Type:          models.NoteType(fm.Type),
		Language:      fm.Language,
		UseCodeEditor: fm.UseCodeEditor,
		Content:       body,
		Tags:          fm.Tags,
	}
	if !hasFrontmatter {
		n.Tags = inlineTags(body)
	}
	if n.Title == "" {
		n.Title = firstHeading(body)
	}
	if fm.CreatedAt != "" {
		ts, err := time.Parse(time.RFC3339Nano, fm.CreatedAt)
		if err != nil {
			return models.Note{}, fmt.Errorf("markdown: createdAt %q: %w", fm.CreatedAt, err)
		}
		n.CreatedAt = ts
	}
	return n.Normalized(), nil
}

// splitFrontmatter separates a leading YAML block from the body. The block
// opens with a "---" line and ends at the next "---" line. A document
// without a closed block, or with a block that is not valid YAML, is all body.
func splitFrontmatter(data []byte) (frontmatter, string, bool) {
	var fm frontmatter
	doc := bytes.TrimLeft(data, "\r\n")
	first, rest, found := bytes.Cut(doc, []byte("\n"))
	if !found || !isDelim(first) {
		return fm, string(data), false
	}

	for off := 0; off < len(rest); {
		line, _, more := bytes.Cut(rest[off:], []byte("\n"))
		end := off + len(line)
		if more {
			end++
		}
		if isDelim(line) {
			if err := yaml.Unmarshal(rest[:off], &fm); err != nil {
				return frontmatter{}, string(data), false
			}
			return fm, string(rest[end:]), true
		}
		off = end
	}
	return fm, string(data), false
}

func isDelim(line []byte) bool {
	return string(bytes.TrimRight(line, "\r")) == delim
}

func inlineTags(body string) []string {
	var out []string
	for _, m := range tagRe.FindAllStringSubmatch(body, -1) {
		out = append(out, m[1])
	}
	return out
}

func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(trimmed[2:])
		}
	}
	return ""
}
