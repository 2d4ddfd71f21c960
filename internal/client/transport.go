// Package client is the Go client for the content API: an HTTP transport and
// a local store that applies mutations optimistically.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"contentflow/internal/models"
)

// Transport is the server surface the Store talks to.
type Transport interface {
	List(ctx context.Context) ([]models.ContentItem, error)
	Get(ctx context.Context, id int64) (*models.ContentItem, error)
	Create(ctx context.Context, in models.CreateContentInput) (*models.ContentItem, error)
	Update(ctx context.Context, id int64, in models.UpdateContentInput) (*models.ContentItem, error)
	Delete(ctx context.Context, id int64) error
	SyncCalendar(ctx context.Context, id int64) (string, error)
}

// APIError is a non-2xx response from the API.
type APIError struct {
	Status  int
	Message string
	Field   string
}

func (e *APIError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%d %s (%s)", e.Status, e.Message, e.Field)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// HTTPTransport calls the JSON API with a bearer session token.
type HTTPTransport struct {
	baseURL string
	token   func(ctx context.Context) (string, error)
	client  *http.Client
}

// NewHTTPTransport returns a transport for baseURL (e.g. "http://localhost:5000").
// token is called per request so short-lived session tokens can be rotated.
func NewHTTPTransport(baseURL string, token func(ctx context.Context) (string, error), client *http.Client) *HTTPTransport {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  client,
	}
}

// StaticToken returns a token func that always yields tok.
func StaticToken(tok string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return tok, nil }
}

func (t *HTTPTransport) List(ctx context.Context) ([]models.ContentItem, error) {
	var items []models.ContentItem
	if err := t.do(ctx, http.MethodGet, "/api/content", nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (t *HTTPTransport) Get(ctx context.Context, id int64) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := t.do(ctx, http.MethodGet, contentPath(id), nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *HTTPTransport) Create(ctx context.Context, in models.CreateContentInput) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := t.do(ctx, http.MethodPost, "/api/content", in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *HTTPTransport) Update(ctx context.Context, id int64, in models.UpdateContentInput) (*models.ContentItem, error) {
	var item models.ContentItem
	if err := t.do(ctx, http.MethodPatch, contentPath(id), in, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

func (t *HTTPTransport) Delete(ctx context.Context, id int64) error {
	return t.do(ctx, http.MethodDelete, contentPath(id), nil, nil)
}

func (t *HTTPTransport) SyncCalendar(ctx context.Context, id int64) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		EventID string `json:"eventId"`
	}
	if err := t.do(ctx, http.MethodPost, "/api/google/sync/"+strconv.FormatInt(id, 10), nil, &out); err != nil {
		return "", err
	}
	return out.EventID, nil
}

func contentPath(id int64) string {
	return "/api/content/" + strconv.FormatInt(id, 10)
}

func (t *HTTPTransport) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if t.token != nil {
		tok, err := t.token(ctx)
		if err != nil {
			return fmt.Errorf("session token: %w", err)
		}
		if tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var body models.ErrorResponse
	if json.Unmarshal(raw, &body) == nil {
		switch {
		case body.Message != "":
			apiErr.Message = body.Message
		case body.Error != "":
			apiErr.Message = body.Error
		}
		apiErr.Field = body.Field
	} else if text := strings.TrimSpace(string(raw)); text != "" {
		apiErr.Message = text
	}
	return apiErr
}
