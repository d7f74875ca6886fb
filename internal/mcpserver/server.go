// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes devnotes tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/devnotes/internal/apperr"
	"github.com/starford/devnotes/internal/attachments"
	"github.com/starford/devnotes/internal/markdown"
	"github.com/starford/devnotes/internal/models"
	"github.com/starford/devnotes/internal/search"
	"github.com/starford/devnotes/internal/workspace"
)

// searchLimit caps the number of records a search tool returns.
const searchLimit = 20

// Server wraps the MCP server with devnotes tools.
type Server struct {
	mcp   *server.MCPServer
	ws    *workspace.Workspace
	files *attachments.Dir
	fetch func(ctx context.Context, rawURL string) ([]byte, error)
}

// New creates a new MCP server with all devnotes tools registered.
func New(ws *workspace.Workspace, files *attachments.Dir) *Server {
	s := &Server{ws: ws, files: files, fetch: fetchHTTP}

	s.mcp = server.NewMCPServer(
		"devnotes",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_notes",
		mcp.WithDescription("Case-insensitive search through note titles, content and tags."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
		mcp.WithString("tag", mcp.Description("Only notes carrying this exact tag")),
		mcp.WithString("type", mcp.Description("Only notes of this type (Code Snippet, Tutorial, Tool, Project)")),
	), s.searchNotes)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes, most recent first, without their content."),
		mcp.WithString("tag", mcp.Description("Only notes carrying this exact tag")),
		mcp.WithString("type", mcp.Description("Only notes of this type")),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as Markdown with YAML frontmatter."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note. Read the record format first via the "+
			"get_record_format tool or the "+RecordFormatURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Note body: Markdown or source code")),
		mcp.WithString("type", mcp.Description("Code Snippet (default), Tutorial, Tool or Project")),
		mcp.WithString("language", mcp.Description("Syntax language of the content (default javascript)")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("delete_note",
		mcp.WithDescription("Delete a note by id."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id")),
	), s.deleteNote)

	s.mcp.AddTool(mcp.NewTool("search_errors",
		mcp.WithDescription("Search logged errors and their solutions. Use it before debugging "+
			"an error to check whether it was solved before."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Error text or keywords")),
		mcp.WithString("project", mcp.Description("Only errors from this project (case-insensitive)")),
		mcp.WithString("tag", mcp.Description("Only errors carrying this exact tag")),
	), s.searchErrors)

	s.mcp.AddTool(mcp.NewTool("log_error",
		mcp.WithDescription("Record an error and, when known, how it was solved."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Short summary")),
		mcp.WithString("message", mcp.Required(), mcp.Description("The raw error text")),
		mcp.WithString("solution", mcp.Description("What fixed it")),
		mcp.WithString("stack_trace", mcp.Description("Stack trace")),
		mcp.WithString("file", mcp.Description("File where the error surfaced")),
		mcp.WithString("project", mcp.Description("Project name")),
		mcp.WithString("tags", mcp.Description("Comma-separated tags")),
	), s.logError)

	s.mcp.AddTool(mcp.NewTool("attach_screenshot",
		mcp.WithDescription("Attach a screenshot to an error log. Accepts an http(s) URL or a "+
			"base64 data URI (png, jpg, jpeg, gif, webp, svg)."),
		mcp.WithString("error_id", mcp.Required(), mcp.Description("Error log id")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI")),
		mcp.WithString("filename", mcp.Description("File name to store the image under")),
	), s.attachScreenshot)

	s.mcp.AddTool(mcp.NewTool("get_record_format",
		mcp.WithDescription("Returns the devnotes record format. "+
			"Call this before creating notes or logging errors."),
	), s.getRecordFormat)

	s.mcp.AddResource(
		mcp.NewResource(RecordFormatURI, "Record Format",
			mcp.WithResourceDescription("Fields of notes and error logs and how tools accept them."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

type noteSummary struct {
	ID        int64           `json:"id"`
	Title     string          `json:"title"`
	Type      models.NoteType `json:"type"`
	Language  string          `json:"language"`
	Tags      []string        `json:"tags"`
	CreatedAt time.Time       `json:"createdAt"`
}

func summarize(notes []models.Note) []noteSummary {
	out := make([]noteSummary, len(notes))
	for i, n := range notes {
		out[i] = noteSummary{ID: n.ID, Title: n.Title, Type: n.Type, Language: n.Language, Tags: n.Tags, CreatedAt: n.CreatedAt}
	}
	return out
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	notes := search.Notes(s.ws.Notes.List(), search.Options{
		Query: query,
		Tag:   optionalString(req, "tag"),
		Type:  models.NoteType(optionalString(req, "type")),
	})
	return jsonResult(head(notes, searchLimit))
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes := search.Notes(s.ws.Notes.List(), search.Options{
		Tag:  optionalString(req, "tag"),
		Type: models.NoteType(optionalString(req, "type")),
	})
	return jsonResult(summarize(notes))
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.ws.Notes.Get(id)
	if err != nil {
		return toolError(err), nil
	}
	data, err := markdown.Render(n)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	n, err := s.ws.Notes.Add(models.Note{
		Title:    title,
		Content:  content,
		Type:     models.NoteType(optionalString(req, "type")),
		Language: optionalString(req, "language"),
		Tags:     splitTags(optionalString(req, "tags")),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created note %d", n.ID)), nil
}

func (s *Server) deleteNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.ws.Notes.Delete(id); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("deleted note %d", id)), nil
}

func (s *Server) searchErrors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	logs := search.ErrorLogs(s.ws.Errors.List(), search.Options{
		Query:   query,
		Tag:     optionalString(req, "tag"),
		Project: optionalString(req, "project"),
	})
	if len(logs) == 0 {
		return mcp.NewToolResultText("no matching errors found"), nil
	}
	return jsonResult(head(logs, searchLimit))
}

func (s *Server) logError(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	message, err := req.RequireString("message")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	e, err := s.ws.Errors.Add(models.ErrorLog{
		Title:      title,
		Message:    message,
		Solution:   optionalString(req, "solution"),
		StackTrace: optionalString(req, "stack_trace"),
		File:       optionalString(req, "file"),
		Project:    optionalString(req, "project"),
		Tags:       splitTags(optionalString(req, "tags")),
	})
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("logged error %d", e.ID)), nil
}

func (s *Server) getRecordFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      RecordFormatURI,
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}

func optionalString(req mcp.CallToolRequest, key string) string {
	v, err := req.RequireString(key)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(v)
}

func requireID(req mcp.CallToolRequest, key string) (int64, error) {
	raw, err := req.RequireString(key)
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return id, nil
}

func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func head[T any](records []T, n int) []T {
	if len(records) > n {
		return records[:n]
	}
	return records
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

// toolError turns a domain error into a tool error result.
func toolError(err error) *mcp.CallToolResult {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return mcp.NewToolResultError("not found")
	case errors.Is(err, apperr.ErrAlreadyExists):
		return mcp.NewToolResultError("already exists: " + err.Error())
	default:
		return mcp.NewToolResultError(err.Error())
	}
}
