package markdown

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/devnotes/internal/models"
)

func TestRenderParseRoundTrip(t *testing.T) {
	created := time.Date(2025, 3, 1, 12, 30, 0, 0, time.UTC)
	in := models.Note{
		ID:        1740832200000,
		Title:     "Debounce in Go",
		Type:      models.TypeCodeSnippet,
		Language:  "go",
		Content:   "```go\ntime.AfterFunc(d, fn)\n```\n",
		Tags:      []string{"go", "timers"},
		CreatedAt: created,
	}

	data, err := Render(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), "title: Debounce in Go")

	out, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.Title, out.Title)
	assert.Equal(t, in.Type, out.Type)
	assert.Equal(t, in.Language, out.Language)
	assert.Equal(t, in.Content, out.Content)
	assert.Equal(t, in.Tags, out.Tags)
	assert.True(t, created.Equal(out.CreatedAt))
}

func TestParse_NoFrontmatterUsesHeading(t *testing.T) {
	n, err := Parse([]byte("# Just a heading\nSome text #beta and #alpha.\n"))
	require.NoError(t, err)
	assert.Equal(t, "Just a heading", n.Title)
	assert.Equal(t, []string{"beta", "alpha"}, n.Tags)
	assert.Equal(t, models.TypeCodeSnippet, n.Type)
	assert.Equal(t, models.DefaultLanguage, n.Language)
}

func TestParse_FrontmatterTagsAreAuthoritative(t *testing.T) {
	n, err := Parse([]byte("---\ntitle: T\ntags:\n  - alpha\n---\nbody #beta #alpha\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha"}, n.Tags)
	assert.Equal(t, "body #beta #alpha\n", n.Content)
}

func TestRenderParseKeepsCodeVerbatim(t *testing.T) {
	cases := map[string]models.Note{
		"hash lines and leading blank": {
			ID: 3, Title: "c and css", Content: "\n#include <stdio.h>\nbody { color: #fff; }",
			Tags: []string{"web"},
		},
		"no tags, trailing blank lines": {
			ID: 4, Title: "shell", Content: "#!/bin/sh\necho '#not-a-tag'\n\n\n",
			Tags: []string{},
		},
		"delimiter inside content": {
			ID: 5, Title: "yaml docs", Content: "a: 1\n---\nb: 2\n",
			Tags: []string{"yaml"},
		},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			data, err := Render(in)
			require.NoError(t, err)

			out, err := Parse(data)
			require.NoError(t, err)
			assert.Equal(t, in.Content, out.Content)
			assert.Equal(t, in.Tags, out.Tags)
			assert.Equal(t, in.Title, out.Title)
		})
	}
}

func TestParse_FrontmatterClosedAtEOF(t *testing.T) {
	n, err := Parse([]byte("---\ntitle: empty\n---"))
	require.NoError(t, err)
	assert.Equal(t, "empty", n.Title)
	assert.Empty(t, n.Content)
}

func TestParse_InvalidYAMLIsBody(t *testing.T) {
	raw := "---\n: invalid: yaml: {{{\n---\nBody\n"
	n, err := Parse([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, raw, n.Content)
	assert.Empty(t, n.Title)
}

func TestParse_BadCreatedAt(t *testing.T) {
	_, err := Parse([]byte("---\ntitle: x\ncreatedAt: yesterday\n---\nbody\n"))
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "7-hello-world.md", Filename(models.Note{ID: 7, Title: "Hello, World!"}))
	assert.Equal(t, "8.md", Filename(models.Note{ID: 8, Title: "???"}))
}

func TestExportCollect(t *testing.T) {
	dir := t.TempDir()
	notes := []models.Note{
		{ID: 2, Title: "second", Content: "b", Tags: []string{}},
		{ID: 1, Title: "first", Content: "a", Tags: []string{"x"}},
	}
	n, err := Export(dir, notes)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub", ".hidden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "loose.md"), []byte("no title here\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", ".hidden", "skip.md"), []byte("# skip\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "notes.txt"), []byte("# txt\n"), 0o644))

	files, err := Collect(dir, "")
	require.NoError(t, err)
	require.Len(t, files, 3)

	titles := map[string]bool{}
	for _, f := range files {
		titles[f.Note.Title] = true
	}
	assert.True(t, titles["first"])
	assert.True(t, titles["second"])
	assert.True(t, titles["loose"], "file name is the fallback title")

	only, err := Collect(dir, "sub/*.md")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, "sub/loose.md", only[0].Path)
}

func TestCollect_InvalidGlob(t *testing.T) {
	_, err := Collect(t.TempDir(), "[")
	assert.Error(t, err)
}
