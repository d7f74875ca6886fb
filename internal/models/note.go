// Package models defines the domain types for devnotes.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Slot keys under which each collection and the settings are persisted.
const (
	NotesKey  = "devnotes-notes"
	ErrorsKey = "devnotes-errors"
	APIKeyKey = "openai-key"
)

// NoteType classifies a note.
type NoteType string

// Note types offered by the note form.
const (
	TypeCodeSnippet NoteType = "Code Snippet"
	TypeTutorial    NoteType = "Tutorial"
	TypeTool        NoteType = "Tool"
	TypeProject     NoteType = "Project"
)

// NoteTypes lists every valid NoteType in display order.
var NoteTypes = []NoteType{TypeCodeSnippet, TypeTutorial, TypeTool, TypeProject}

// DefaultLanguage is used when a note is created without a language.
const DefaultLanguage = "javascript"

// Note is a code snippet, tutorial, tool or project write-up.
type Note struct {
	ID            int64     `json:"id"`
	Title         string    `json:"title"`
	Type          NoteType  `json:"type"`
	Language      string    `json:"language"`
	UseCodeEditor bool      `json:"useCodeEditor"`
	Content       string    `json:"content"`
	Tags          []string  `json:"tags"`
	CreatedAt     time.Time `json:"createdAt"`
}

// RecordID returns the note id.
func (n Note) RecordID() int64 { return n.ID }

// Created returns the creation time.
func (n Note) Created() time.Time { return n.CreatedAt }

// Stamped returns a copy of n carrying the given identity.
func (n Note) Stamped(id int64, createdAt time.Time) Note {
	n.ID = id
	n.CreatedAt = createdAt
	return n
}

// Normalized returns a copy of n with defaults applied and tags deduplicated.
func (n Note) Normalized() Note {
	if n.Type == "" {
		n.Type = TypeCodeSnippet
	}
	if n.Language == "" {
		n.Language = DefaultLanguage
	}
	n.Tags = NormalizeTags(n.Tags)
	return n
}

// Validate checks the fields a note must carry before it reaches the store.
func (n Note) Validate() error {
	types := make([]interface{}, len(NoteTypes))
	for i, t := range NoteTypes {
		types[i] = t
	}
	return validation.ValidateStruct(&n,
		validation.Field(&n.Title, validation.Required.Error("title is required"), notBlank),
		validation.Field(&n.Content, validation.Required.Error("content is required"), notBlank),
		validation.Field(&n.Type, validation.In(types...).Error("unknown note type")),
	)
}

// SearchFields returns the text a free-text query is matched against.
func (n Note) SearchFields() []string {
	fields := make([]string, 0, 2+len(n.Tags))
	fields = append(fields, n.Title, n.Content)
	return append(fields, n.Tags...)
}

// Languages is the suggestion list offered for Note.Language.
var Languages = []Language{
	{"javascript", "JavaScript"}, {"typescript", "TypeScript"}, {"python", "Python"},
	{"java", "Java"}, {"csharp", "C#"}, {"cpp", "C++"}, {"c", "C"}, {"php", "PHP"},
	{"ruby", "Ruby"}, {"go", "Go"}, {"rust", "Rust"}, {"swift", "Swift"},
	{"kotlin", "Kotlin"}, {"scala", "Scala"}, {"dart", "Dart"}, {"r", "R"},
	{"matlab", "MATLAB"}, {"perl", "Perl"}, {"lua", "Lua"}, {"haskell", "Haskell"},
	{"clojure", "Clojure"}, {"elixir", "Elixir"}, {"erlang", "Erlang"}, {"fsharp", "F#"},
	{"ocaml", "OCaml"}, {"nim", "Nim"}, {"crystal", "Crystal"}, {"zig", "Zig"},
	{"v", "V"}, {"julia", "Julia"}, {"groovy", "Groovy"}, {"powershell", "PowerShell"},
	{"bash", "Bash"}, {"shell", "Shell"}, {"sql", "SQL"}, {"html", "HTML"},
	{"css", "CSS"}, {"scss", "SCSS"}, {"sass", "Sass"}, {"less", "Less"},
	{"json", "JSON"}, {"xml", "XML"}, {"yaml", "YAML"}, {"toml", "TOML"},
	{"ini", "INI"}, {"markdown", "Markdown"}, {"dockerfile", "Dockerfile"},
	{"makefile", "Makefile"}, {"cmake", "CMake"}, {"assembly", "Assembly"},
	{"fortran", "Fortran"}, {"cobol", "COBOL"}, {"pascal", "Pascal"}, {"ada", "Ada"},
	{"lisp", "Lisp"}, {"scheme", "Scheme"}, {"prolog", "Prolog"}, {"other", "Other"},
}

// Language is one entry of the language suggestion list.
type Language struct {
	Value string `json:"value"`
	Label string `json:"label"`
}
