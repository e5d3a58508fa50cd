// Package client is a Go client for the notes REST API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/starford/notable/internal/models"
)

// HTTPClient calls the notes API over HTTP/JSON, one request per operation.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) { c.httpClient = hc }
}

// New creates a client targeting baseURL (e.g. "http://localhost:5000").
func New(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListOptions filters and pages a list call. Zero values are omitted.
type ListOptions struct {
	Search string
	Page   int
	Limit  int
}

// ListResult is one page of notes plus the filtered total.
type ListResult struct {
	Notes []models.Note `json:"notes"`
	Total int           `json:"total"`
}

// CreateNoteRequest is the body of a create call.
type CreateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// UpdateNoteRequest is the body of an update call. Nil fields are omitted
// and keep their stored value.
type UpdateNoteRequest struct {
	Title   *string `json:"title,omitempty"`
	Content *string `json:"content,omitempty"`
}

// --- Notes ---

func (c *HTTPClient) ListNotes(ctx context.Context, opts ListOptions) (*ListResult, error) {
	q := url.Values{}
	if opts.Search != "" {
		q.Set("search", opts.Search)
	}
	if opts.Page > 0 {
		q.Set("page", strconv.Itoa(opts.Page))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/notes"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var res ListResult
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *HTTPClient) GetNote(ctx context.Context, id string) (*models.Note, error) {
	var note models.Note
	if err := c.doJSON(ctx, http.MethodGet, "/api/notes/"+url.PathEscape(id), nil, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *HTTPClient) CreateNote(ctx context.Context, req CreateNoteRequest) (*models.Note, error) {
	var note models.Note
	if err := c.doJSON(ctx, http.MethodPost, "/api/notes", req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *HTTPClient) UpdateNote(ctx context.Context, id string, req UpdateNoteRequest) (*models.Note, error) {
	var note models.Note
	if err := c.doJSON(ctx, http.MethodPut, "/api/notes/"+url.PathEscape(id), req, &note); err != nil {
		return nil, err
	}
	return &note, nil
}

func (c *HTTPClient) DeleteNote(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, "/api/notes/"+url.PathEscape(id), nil, nil)
}

// --- internal helpers ---

// APIError is a failed response from the server.
type APIError struct {
	StatusCode int
	Message    string
	// Errors holds the raw "errors" member: field issues for validation
	// failures, messages for internal errors.
	Errors json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
}

// doJSON performs an HTTP request with optional JSON body and decodes the
// envelope's data member into result. If result is nil, data is discarded.
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(respBody, &env)

	if resp.StatusCode >= 400 {
		if decodeErr == nil && env.Message != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: env.Message, Errors: env.Errors}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(respBody))}
	}

	if decodeErr != nil {
		return fmt.Errorf("decoding response: %w", decodeErr)
	}
	if result != nil {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("decoding response data: %w", err)
		}
	}
	return nil
}
