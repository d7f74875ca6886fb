package mcpserver

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/devnotes/internal/attachments"
)

type screenshotResult struct {
	ErrorID       int64  `json:"errorId"`
	ScreenshotURL string `json:"screenshotUrl"`
	Size          int64  `json:"size"`
}

// attachScreenshot downloads or decodes an image, stores it in the
// attachments directory and points the error log's screenshotUrl at it.
func (s *Server) attachScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "error_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rawURL, err := req.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	filename := optionalString(req, "filename")

	if _, err := s.ws.Errors.Get(id); err != nil {
		return toolError(err), nil
	}

	var data []byte
	if strings.HasPrefix(rawURL, "data:") {
		data, err = decodeDataURI(rawURL)
	} else {
		data, err = s.fetch(ctx, rawURL)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if filename == "" {
		filename = filenameFromURL(rawURL)
	}
	saved, err := s.files.Save(filename, bytes.NewReader(data))
	if err != nil {
		return toolError(err), nil
	}

	// Re-read: the record may have been edited while the image was fetched.
	e, err := s.ws.Errors.Get(id)
	if err != nil {
		return toolError(err), nil
	}
	e.ScreenshotURL = saved.URL
	if _, err := s.ws.Errors.Update(e); err != nil {
		return toolError(err), nil
	}

	out, _ := json.Marshal(screenshotResult{ErrorID: id, ScreenshotURL: saved.URL, Size: saved.Size})
	return mcp.NewToolResultText(string(out)), nil
}

// decodeDataURI parses a base64 data:<mediatype>;base64,<payload> URI whose
// media type is one of the accepted image types.
func decodeDataURI(uri string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data URI: missing payload")
	}
	mediaType, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return nil, errors.New("data URI: payload must be base64")
	}
	mediaType, _, _ = strings.Cut(mediaType, ";")
	if attachments.ExtForMIME(mediaType) == "" {
		return nil, fmt.Errorf("data URI: unsupported media type %q", mediaType)
	}

	data, err := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fmt.Errorf("data URI: %w", err)
	}
	return data, nil
}

const (
	fetchTimeout = 30 * time.Second
	maxRedirects = 5
	metadataHost = "metadata.google.internal"
)

// screenshotClient refuses to connect to blocked addresses. The check runs
// on the resolved address of every dial, redirects included.
var screenshotClient = &http.Client{
	Timeout: fetchTimeout,
	Transport: &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 10 * time.Second,
			Control: func(_, address string, _ syscall.RawConn) error {
				ap, err := netip.ParseAddrPort(address)
				if err != nil {
					return fmt.Errorf("dial %s: %w", address, err)
				}
				if blockedAddr(ap.Addr()) {
					return fmt.Errorf("blocked address %s", ap.Addr())
				}
				return nil
			},
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
	},
	CheckRedirect: func(req *http.Request, via []*http.Request) error {
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return checkBlockedHost(req.URL.Hostname())
	},
}

// fetchHTTP downloads an image from an http(s) URL.
func fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("fetch: scheme %q not allowed", u.Scheme)
	}
	if err := checkBlockedHost(u.Hostname()); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	resp, err := screenshotClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, attachments.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("fetch: read body: %w", err)
	}
	if len(data) > attachments.MaxSize {
		return nil, attachments.ErrTooLarge
	}
	return data, nil
}

// checkBlockedHost rejects literal addresses and names that are never a
// legitimate screenshot source. Names are resolved again at dial time.
func checkBlockedHost(host string) error {
	if strings.EqualFold(host, metadataHost) || strings.EqualFold(host, "localhost") {
		return fmt.Errorf("blocked host %s", host)
	}
	if addr, err := netip.ParseAddr(host); err == nil && blockedAddr(addr) {
		return fmt.Errorf("blocked host %s", host)
	}
	return nil
}

// blockedAddr reports loopback, link-local (cloud metadata lives at
// 169.254.169.254), unspecified and multicast addresses.
func blockedAddr(a netip.Addr) bool {
	a = a.Unmap()
	return a.IsLoopback() || a.IsLinkLocalUnicast() || a.IsLinkLocalMulticast() ||
		a.IsUnspecified() || a.IsMulticast()
}

// filenameFromURL takes the last path element of an http(s) URL. Data URIs
// and URLs without a usable name yield "", for which Save picks a random name.
func filenameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "data" {
		return ""
	}
	name := path.Base(u.Path)
	if !strings.Contains(name, ".") || strings.HasPrefix(name, ".") {
		return ""
	}
	return name
}
