package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"orderdesk/internal/metrics"
	"orderdesk/internal/status"
)

const maxResponseBody = 10 << 20

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-2xx answer from the backend. Message is the server's own
// text when it sent one.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized
	case ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// TokenSource supplies the current auth token, empty when logged out.
type TokenSource interface {
	Token() string
}

type Client struct {
	baseURL string
	client  *http.Client
	catalog *status.Catalog

	tokens         TokenSource
	onUnauthorized func()
}

func NewClient(baseURL string, timeout time.Duration, catalog *status.Catalog) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		catalog: catalog,
	}
}

// UseSession wires the token source and the hook fired when an authenticated
// request comes back 401.
func (c *Client) UseSession(tokens TokenSource, onUnauthorized func()) {
	c.tokens = tokens
	c.onUnauthorized = onUnauthorized
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type request struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func (c *Client) do(ctx context.Context, r request) ([]byte, error) {
	target := c.baseURL + r.path
	if len(r.query) > 0 {
		target += "?" + r.query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, r.method, target, r.body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}

	var token string
	if c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("x-auth-token", token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.APIRequestDuration.WithLabelValues(r.op).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(r.op, "error").Inc()
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	metrics.APIRequestsTotal.WithLabelValues(r.op, strconv.Itoa(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return body, nil
	}

	apiErr := &Error{Status: resp.StatusCode, Message: serverMessage(body, resp.StatusCode)}
	if resp.StatusCode == http.StatusUnauthorized && token != "" {
		slog.Warn("backend rejected token", "op", r.op)
		if c.onUnauthorized != nil {
			c.onUnauthorized()
		}
	}
	return nil, apiErr
}

func (c *Client) getJSON(ctx context.Context, op, path string, query url.Values) ([]byte, error) {
	return c.do(ctx, request{op: op, method: http.MethodGet, path: path, query: query})
}

func (c *Client) sendJSON(ctx context.Context, op, method, path string, payload any) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, request{op: op, method: method, path: path, body: body, contentType: contentType})
}

func serverMessage(body []byte, code int) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		if payload.Error != "" {
			return payload.Error
		}
	}
	return fmt.Sprintf("Request failed with status %d", code)
}
