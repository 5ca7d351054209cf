// Package client provides a typed Go client for the activities API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/activity-board/internal/model"
)

// maxBody caps how much of a response body is read.
const maxBody = 1 << 20

// APIError is returned when the API responds with a non-2xx status and a
// JSON body. Detail is empty when the body carried no usable detail.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("activities api %d", e.Status)
	}
	return fmt.Sprintf("activities api %d: %s", e.Status, e.Detail)
}

// Client is a typed client for the activities API.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a new Client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Option configures the client.
type Option func(*Client)

// WithTimeout sets the HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.HTTPClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

// ListActivities calls GET /activities.
// Any non-2xx status is an *APIError regardless of body.
func (c *Client) ListActivities(ctx context.Context) (model.Catalog, error) {
	resp, err := c.do(ctx, http.MethodGet, "/activities")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("read activities: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Detail: detailFrom(body)}
	}

	var catalog model.Catalog
	if err := json.Unmarshal(body, &catalog); err != nil {
		return nil, fmt.Errorf("decode activities: %w", err)
	}
	return catalog, nil
}

// Signup calls POST /activities/{activity}/signup?email={email} and returns
// the server's confirmation message.
func (c *Client) Signup(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodPost, participantPath(activity, "signup", email))
}

// Unregister calls DELETE /activities/{activity}/participants?email={email}
// and returns the server's confirmation message.
func (c *Client) Unregister(ctx context.Context, activity, email string) (string, error) {
	return c.mutate(ctx, http.MethodDelete, participantPath(activity, "participants", email))
}

// participantPath percent-encodes activity as one path segment and email as
// a query value.
func participantPath(activity, action, email string) string {
	return "/activities/" + url.PathEscape(activity) + "/" + action + "?email=" + url.QueryEscape(email)
}

// mutate sends a signup or unregister request. A body that is not JSON is a
// decode error on both success and failure statuses.
func (c *Client) mutate(ctx context.Context, method, path string) (string, error) {
	resp, err := c.do(ctx, method, path)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var result struct {
		Message string          `json:"message"`
		Detail  json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &APIError{Status: resp.StatusCode, Detail: detailText(result.Detail)}
	}
	return result.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

// detailFrom extracts "detail" from a JSON error body, if there is one.
func detailFrom(body []byte) string {
	var e struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return detailText(e.Detail)
}

// detailText renders a detail value: strings as-is, other non-null values as
// their JSON text.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
