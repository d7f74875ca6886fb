package mcpserver

// RecordFormatURI is the resource URI of RecordFormatContract.
const RecordFormatURI = "devnotes://record-format"

// RecordFormatContract describes the two record kinds and how tools expect
// them, for LLM consumers creating notes or logging errors.
const RecordFormatContract = `# devnotes Record Format

devnotes keeps two collections: **notes** (snippets, tutorials, tools, project write-ups)
and **error logs** (an error message and how it was solved). Records are listed most
recent first. Ids are integers assigned by devnotes; pass them back as strings.

## Notes

| field          | required | notes                                                        |
|----------------|----------|--------------------------------------------------------------|
| title          | yes      | non-blank                                                    |
| content        | yes      | Markdown or source code                                      |
| type           | no       | one of "Code Snippet" (default), "Tutorial", "Tool", "Project" |
| language       | no       | syntax language of the content, default "javascript"         |
| tags           | no       | comma-separated; trimmed, empty and duplicate tags dropped   |

` + "`" + `read_note` + "`" + ` returns the note as Markdown with YAML frontmatter:

` + "```" + `markdown
---
id: 1740832200000
title: Debounce in Go
type: Code Snippet
language: go
tags:
  - go
  - timers
createdAt: "2025-03-01T12:30:00Z"
---
time.AfterFunc(d, fn)
` + "```" + `

## Error logs

| field       | required | notes                                                 |
|-------------|----------|-------------------------------------------------------|
| title       | yes      | short summary                                         |
| message     | yes      | the raw error text as printed                         |
| solution    | no       | what fixed it                                         |
| stack_trace | no       |                                                       |
| file        | no       | file where the error surfaced                         |
| project     | no       | project name; filters compare it case-insensitively   |
| tags        | no       | comma-separated                                       |

## Screenshots

- Attach one with ` + "`" + `attach_screenshot` + "`" + ` (http(s) URL or base64 data URI).
- Stored flat under ` + "`" + `/attachments/` + "`" + `; the error log's ` + "`" + `screenshotUrl` + "`" + ` is set to that path.
- Supported formats: png, jpg, jpeg, gif, webp, svg.

## Search

Queries are case-insensitive substring matches over title, content (notes) or
message and solution (error logs), and tags. An empty query matches everything.
`
