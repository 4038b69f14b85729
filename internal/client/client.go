// Package client talks to a running toolhub API. The CLI and the watch TUI
// both use it.
package client

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mattjoyce/toolhub/internal/api"
	"github.com/mattjoyce/toolhub/internal/catalog"
	"github.com/mattjoyce/toolhub/internal/events"
	"github.com/mattjoyce/toolhub/internal/registry"
)

// DefaultURL matches the default api.listen.
const DefaultURL = "http://127.0.0.1:8765"

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	RetryAfter string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api returned %d", e.StatusCode)
	}
	return fmt.Sprintf("api returned %d: %s", e.StatusCode, e.Message)
}

type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	// stream has no timeout; /events is long-lived.
	stream *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the client used for request/response calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 5 * time.Second},
		stream:  &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Healthz(ctx context.Context) (api.HealthzResponse, error) {
	var out api.HealthzResponse
	err := c.do(ctx, http.MethodGet, "/healthz", nil, &out)
	return out, err
}

func (c *Client) RunningStatus(ctx context.Context) ([]registry.Record, error) {
	var out []registry.Record
	err := c.do(ctx, http.MethodGet, "/api/running-status", nil, &out)
	return out, err
}

func (c *Client) Process(ctx context.Context, pid int) (api.ProcessResponse, error) {
	var out api.ProcessResponse
	err := c.do(ctx, http.MethodGet, "/api/processes/"+strconv.Itoa(pid), nil, &out)
	return out, err
}

func (c *Client) Tools(ctx context.Context) ([]catalog.Tool, error) {
	var out []catalog.Tool
	err := c.do(ctx, http.MethodGet, "/api/tools", nil, &out)
	return out, err
}

func (c *Client) Launch(ctx context.Context, toolID string, suppressOpen bool) (api.LaunchResponse, error) {
	var out api.LaunchResponse
	err := c.do(ctx, http.MethodPost, "/api/launch-tool", api.LaunchRequest{ToolID: toolID, SuppressOpen: suppressOpen}, &out)
	return out, err
}

func (c *Client) Stop(ctx context.Context, pid int) (api.StopResponse, error) {
	var out api.StopResponse
	err := c.do(ctx, http.MethodPost, "/api/stop-tool", api.StopRequest{PID: &pid}, &out)
	return out, err
}

// Events reads the SSE stream and calls fn for each event until ctx is done
// or the server closes the connection. lastID resumes after a known event.
func (c *Client) Events(ctx context.Context, lastID int64, fn func(events.Event)) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/events", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "text/event-stream")
	if lastID > 0 {
		req.Header.Set("Last-Event-ID", strconv.FormatInt(lastID, 10))
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return fmt.Errorf("connect events: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}

	return readSSE(resp.Body, fn)
}

func readSSE(r io.Reader, fn func(events.Event)) error {
	scanner := bufio.NewScanner(r)
	var cur events.Event
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			if cur.Data != nil {
				cur.At = time.Now()
				fn(cur)
			}
			cur = events.Event{}
		case strings.HasPrefix(line, ":"):
			// keep-alive
		case strings.HasPrefix(line, "id: "):
			if id, err := strconv.ParseInt(line[4:], 10, 64); err == nil {
				cur.ID = id
			}
		case strings.HasPrefix(line, "event: "):
			cur.Type = line[7:]
		case strings.HasPrefix(line, "data: "):
			cur.Data = []byte(line[6:])
		}
	}
	return scanner.Err()
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, RetryAfter: resp.Header.Get("Retry-After")}
	var body api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Message = body.Error
	}
	return apiErr
}
