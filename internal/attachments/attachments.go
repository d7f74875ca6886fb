// Package attachments stores screenshot files referenced by error logs.
// Files live flat in one directory and are served under URLPrefix.
package attachments

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/devnotes/internal/apperr"
)

const (
	// URLPrefix is the path attachments are served under.
	URLPrefix = "/attachments/"
	// MaxSize is the largest accepted attachment.
	MaxSize = 10 << 20
)

var (
	allowedExtensions = map[string]bool{
		".png": true, ".jpg": true, ".jpeg": true,
		".gif": true, ".webp": true, ".svg": true,
	}

	mimeToExt = map[string]string{
		"image/png":     ".png",
		"image/jpeg":    ".jpg",
		"image/gif":     ".gif",
		"image/webp":    ".webp",
		"image/svg+xml": ".svg",
	}

	safeFilenameRe = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

	// ErrUnsupported is returned for content that is not an accepted image.
	ErrUnsupported = errors.New("attachments: unsupported file")
	// ErrTooLarge is returned when content exceeds MaxSize.
	ErrTooLarge = errors.New("attachments: file too large")
)

// Saved describes a stored attachment.
type Saved struct {
	Filename string `json:"filename"`
	Size     int64  `json:"size"`
	URL      string `json:"url"`
}

// Dir is the attachments directory.
type Dir struct {
	root string
}

// NewDir returns a Dir rooted at root. The directory is created on first save.
func NewDir(root string) (*Dir, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("attachments: resolve %s: %w", root, err)
	}
	return &Dir{root: abs}, nil
}

// Root returns the absolute directory path.
func (d *Dir) Root() string { return d.root }

// Path validates that name is a plain file name and returns its absolute path.
func (d *Dir) Path(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("attachments: filename is required: %w", apperr.ErrValidation)
	}
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || cleaned == "." {
		return "", fmt.Errorf("attachments: invalid filename %q: %w", name, apperr.ErrValidation)
	}
	abs := filepath.Join(d.root, cleaned)
	if !strings.HasPrefix(abs, d.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("attachments: %q escapes directory: %w", name, apperr.ErrValidation)
	}
	return abs, nil
}

// Save sanitizes name, checks that data is an image matching the extension and
// writes it. An existing file with the same name yields apperr.ErrAlreadyExists.
func (d *Dir) Save(name string, r io.Reader) (Saved, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return Saved{}, fmt.Errorf("attachments: read: %w", err)
	}
	if len(data) > MaxSize {
		return Saved{}, ErrTooLarge
	}

	if name == "" {
		name = uuid.New().String() + DetectExt(data)
	}
	name = Sanitize(name)
	ext := strings.ToLower(filepath.Ext(name))
	if !allowedExtensions[ext] {
		return Saved{}, fmt.Errorf("%w: extension %q (allowed: png, jpg, jpeg, gif, webp, svg)", ErrUnsupported, ext)
	}
	if err := validateMagicBytes(data, ext); err != nil {
		return Saved{}, err
	}

	abs, err := d.Path(name)
	if err != nil {
		return Saved{}, err
	}
	if err := os.MkdirAll(d.root, 0o755); err != nil {
		return Saved{}, fmt.Errorf("attachments: mkdir: %w", err)
	}
	f, err := os.OpenFile(abs, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return Saved{}, fmt.Errorf("attachments: %s: %w", name, apperr.ErrAlreadyExists)
		}
		return Saved{}, fmt.Errorf("attachments: create %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(abs)
		return Saved{}, fmt.Errorf("attachments: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return Saved{}, fmt.Errorf("attachments: close %s: %w", name, err)
	}
	return Saved{Filename: name, Size: int64(len(data)), URL: URLPrefix + name}, nil
}

// Sanitize strips path components and unsafe characters from name.
func Sanitize(name string) string {
	name = filepath.Base(name)
	name = safeFilenameRe.ReplaceAllString(name, "_")
	if name == "" || name == "." || name == ".." {
		name = uuid.New().String()
	}
	return name
}

// ExtForMIME returns the file extension for an accepted image MIME type.
func ExtForMIME(mime string) string {
	return mimeToExt[strings.TrimSpace(strings.Split(mime, ";")[0])]
}

// DetectExt sniffs data and returns the matching image extension, or ".bin".
func DetectExt(data []byte) string {
	if ext := ExtForMIME(http.DetectContentType(data)); ext != "" {
		return ext
	}
	if bytes.Contains(head(data), []byte("<svg")) {
		return ".svg"
	}
	return ".bin"
}

func head(data []byte) []byte {
	if len(data) > 1024 {
		return data[:1024]
	}
	return data
}

// validateMagicBytes verifies file content matches the declared extension.
func validateMagicBytes(data []byte, ext string) error {
	if ext == ".svg" {
		if !bytes.Contains(head(data), []byte("<svg")) {
			return fmt.Errorf("%w: content is not an SVG image", ErrUnsupported)
		}
		return nil
	}

	detected := http.DetectContentType(data)
	got := ExtForMIME(detected)
	switch ext {
	case ".jpg", ".jpeg":
		if got != ".jpg" {
			return fmt.Errorf("%w: content does not match %s (detected %s)", ErrUnsupported, ext, detected)
		}
	default:
		if got != ext {
			return fmt.Errorf("%w: content does not match %s (detected %s)", ErrUnsupported, ext, detected)
		}
	}
	return nil
}
