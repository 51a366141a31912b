// Package store talks to the remote event store over HTTP+JSON.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

// DefaultBaseURL is where the store listens in local development.
const DefaultBaseURL = "http://localhost:3000"

const defaultTimeout = 15 * time.Second

// Client performs remote reads and writes of events, users and categories.
// It keeps no state between calls and never retries.
type Client struct {
	client  *http.Client
	baseURL string
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.client = hc
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// NewClient creates a Client for the store at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		client: &http.Client{
			Timeout: defaultTimeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the store origin.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) ListEvents(ctx context.Context) ([]model.Event, error) {
	var out []model.Event
	if err := c.do(ctx, http.MethodGet, "/events", nil, &out, false); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) GetEvent(ctx context.Context, id model.ID) (model.Event, error) {
	var out model.Event
	if err := c.do(ctx, http.MethodGet, "/events/"+escapeID(id), nil, &out, true); err != nil {
		return model.Event{}, err
	}
	return out, nil
}

// CreateEvent posts a new event and returns the stored record, including
// the id the store assigned.
func (c *Client) CreateEvent(ctx context.Context, draft model.Draft) (model.Event, error) {
	var out model.Event
	if err := c.do(ctx, http.MethodPost, "/events", draft.Record(), &out, false); err != nil {
		return model.Event{}, err
	}
	return out, nil
}

// UpdateEvent replaces the whole record stored under id.
func (c *Client) UpdateEvent(ctx context.Context, id model.ID, event model.Event) error {
	return c.do(ctx, http.MethodPut, "/events/"+escapeID(id), event, nil, true)
}

func (c *Client) DeleteEvent(ctx context.Context, id model.ID) error {
	return c.do(ctx, http.MethodDelete, "/events/"+escapeID(id), nil, nil, true)
}

func (c *Client) ListUsers(ctx context.Context) ([]model.User, error) {
	var out []model.User
	if err := c.do(ctx, http.MethodGet, "/users", nil, &out, false); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

func (c *Client) GetUser(ctx context.Context, id model.ID) (model.User, error) {
	var out model.User
	if err := c.do(ctx, http.MethodGet, "/users/"+escapeID(id), nil, &out, true); err != nil {
		return model.User{}, err
	}
	return out, nil
}

func (c *Client) ListCategories(ctx context.Context) ([]model.Category, error) {
	var out []model.Category
	if err := c.do(ctx, http.MethodGet, "/categories", nil, &out, false); err != nil {
		return nil, err
	}
	return nonNil(out), nil
}

// do issues a single request. When single is true a 404 is reported as
// KindNotFound. out may be nil for acknowledgement-only calls.
func (c *Client) do(ctx context.Context, method, path string, body, out any, single bool) error {
	op := method + " " + path

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	started := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		appLog.Error("store request failed", err, "op", op)
		return &Error{Kind: KindTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	appLog.Debug("store request",
		"op", op,
		"status", resp.StatusCode,
		"duration", time.Since(started).String(),
	)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// ok
	case resp.StatusCode == http.StatusNotFound && single:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Kind: KindNotFound, Op: op, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &Error{Kind: KindHTTP, Op: op, Status: resp.StatusCode, Err: errors.New(resp.Status)}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: KindTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &Error{Kind: KindDecode, Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func escapeID(id model.ID) string {
	return url.PathEscape(id.String())
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
