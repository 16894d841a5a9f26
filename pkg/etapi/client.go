// Package etapi provides a thin typed session over the note store's HTTP
// API. It carries authentication and status handling; everything above the
// wire (traversal, snapshots, diffing) lives elsewhere.
package etapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Session is an authenticated HTTP client bound to one server.
// Request paths are relative to <server>/ETAPI/.
type Session struct {
	BaseURL string
	Logger  *slog.Logger

	token  string
	client *http.Client
}

// NewSession creates a session for the given server URL and API token.
func NewSession(serverURL, token string, logger *slog.Logger) *Session {
	return &Session{
		BaseURL: strings.TrimRight(serverURL, "/") + "/ETAPI/",
		Logger:  logger,
		token:   token,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Note fetches a note record by id.
func (s *Session) Note(ctx context.Context, id string) (Note, error) {
	var note Note
	if err := s.getJSON(ctx, "notes/"+id, &note); err != nil {
		return Note{}, err
	}
	return note, nil
}

// Branch fetches an edge record by id.
func (s *Session) Branch(ctx context.Context, id string) (Branch, error) {
	var branch Branch
	if err := s.getJSON(ctx, "branches/"+id, &branch); err != nil {
		return Branch{}, err
	}
	return branch, nil
}

// NoteContent downloads the raw content body of a note.
func (s *Session) NoteContent(ctx context.Context, id string) ([]byte, error) {
	resp, err := s.do(ctx, http.MethodGet, s.BaseURL+"notes/"+id+"/content/", nil, "")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read content of note %s: %w", id, err)
	}
	return content, nil
}

// PutNoteContent replaces the content body of a note.
func (s *Session) PutNoteContent(ctx context.Context, id string, content []byte) error {
	resp, err := s.do(ctx, http.MethodPut, s.BaseURL+"notes/"+id+"/content/", bytes.NewReader(content), "application/octet-stream")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Ping issues a bare PUT against an absolute URL, outside the API base.
// Used to poke auxiliary endpoints such as a dev server's refresh hook.
func (s *Session) Ping(ctx context.Context, url string) error {
	resp, err := s.do(ctx, http.MethodPut, url, nil, "")
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (s *Session) getJSON(ctx context.Context, path string, v any) error {
	resp, err := s.do(ctx, http.MethodGet, s.BaseURL+path, nil, "")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response for %s: %w", path, err)
	}
	return nil
}

// do performs one request and fails on any non-2xx status. The caller owns
// the response body on success.
func (s *Session) do(ctx context.Context, method, url string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", url, err)
	}
	req.Header.Set("Authorization", s.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if s.Logger != nil {
		s.Logger.Debug("remote request", "method", method, "url", url)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s failed: %w", method, url, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("%s %s failed: %s: %s", method, url, resp.Status, strings.TrimSpace(string(detail)))
	}

	return resp, nil
}
