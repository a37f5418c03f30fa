package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/sharanperla/Greenleaf-client/internal/core"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// TokenSource supplies bearer tokens for authenticated calls.
type TokenSource interface {
	// Token returns the current access token, or "" when there is no credential.
	Token(ctx context.Context) (string, error)
	// Refresh obtains a new access token after the server rejected the current one.
	Refresh(ctx context.Context) (string, error)
}

// Option customizes a client.
type Option func(*transport)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(t *transport) { t.http = c }
}

// WithTimeout bounds every request that has no earlier deadline.
func WithTimeout(d time.Duration) Option {
	return func(t *transport) { t.timeout = d }
}

// WithLogger sets the logger used for request tracing.
func WithLogger(logger *zerolog.Logger) Option {
	return func(t *transport) { t.log = logger }
}

type transport struct {
	base    string
	http    *http.Client
	timeout time.Duration
	log     *zerolog.Logger
}

type request struct {
	method      string
	path        string
	body        []byte
	contentType string
}

type response struct {
	status int
	body   []byte
}

func newTransport(baseURL string, opts []Option) (*transport, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must be http or https", baseURL)
	}

	disabled := zerolog.Nop()
	t := &transport{
		base: strings.TrimRight(u.String(), "/"),
		http: http.DefaultClient,
		log:  &disabled,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// resolve turns a server-relative path into an absolute URL.
func (t *transport) resolve(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return t.base + path
}

func (t *transport) roundTrip(ctx context.Context, req request, token string) (*response, error) {
	if t.timeout > 0 {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, t.timeout)
			defer cancel()
		}
	}

	var body io.Reader
	if req.body != nil {
		body = bytes.NewReader(req.body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.method, t.resolve(req.path), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := t.http.Do(httpReq)
	if err != nil {
		t.log.Debug().Err(err).Str("method", req.method).Str("path", req.path).Msg("http request failed")
		return nil, transportError(req, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(req, err)
	}

	t.log.Debug().
		Str("method", req.method).
		Str("path", req.path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("http request")

	return &response{status: resp.StatusCode, body: data}, nil
}

func transportError(req request, err error) error {
	op := req.method + " " + req.path
	if errors.Is(err, context.DeadlineExceeded) {
		return core.TimeoutError(op+" timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return core.TimeoutError(op+" timed out", err)
	}
	return core.NetworkError(op+" failed", err)
}

// decode maps the status to the error taxonomy and unmarshals 2xx bodies into out.
func decode(op string, resp *response, out any) error {
	switch {
	case resp.status == http.StatusUnauthorized || resp.status == http.StatusForbidden:
		ce := core.AuthError(op+": "+excerpt(resp.body), nil)
		ce.Status = resp.status
		return ce
	case resp.status < 200 || resp.status > 299:
		return core.ServerError(resp.status, fmt.Sprintf("%s: status %d: %s", op, resp.status, excerpt(resp.body)))
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		ce := core.ServerError(resp.status, op+": malformed response")
		ce.Err = err
		return ce
	}
	return nil
}

// excerpt extracts a short human-readable reason from an error body.
func excerpt(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200] + "..."
	}
	if text == "" {
		return "empty response"
	}
	return text
}

func jsonRequest(method, path string, payload any) (request, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return request{}, fmt.Errorf("marshal %s body: %w", path, err)
	}
	return request{method: method, path: path, body: data, contentType: "application/json"}, nil
}

// Client calls the authenticated backend endpoints.
type Client struct {
	t      *transport
	tokens TokenSource
}

// NewClient builds a client for baseURL using tokens for bearer auth.
func NewClient(baseURL string, tokens TokenSource, opts ...Option) (*Client, error) {
	t, err := newTransport(baseURL, opts)
	if err != nil {
		return nil, err
	}
	return &Client{t: t, tokens: tokens}, nil
}

// ResolveURL maps a server-relative media path to an absolute URL.
func (c *Client) ResolveURL(path string) string {
	return c.t.resolve(path)
}

// do performs an authenticated call. Without a credential no request is made.
// A 401 triggers one refresh and one retry with the same body.
func (c *Client) do(ctx context.Context, op string, req request, out any) error {
	if c.tokens == nil {
		return core.ErrNoCredential
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return core.AuthError(op+": token unavailable", err)
	}
	if token == "" {
		return core.ErrNoCredential
	}

	resp, err := c.t.roundTrip(ctx, req, token)
	if err != nil {
		return err
	}

	if resp.status == http.StatusUnauthorized {
		c.t.log.Debug().Str("op", op).Msg("access token rejected, refreshing")
		fresh, refreshErr := c.tokens.Refresh(ctx)
		if refreshErr != nil || fresh == "" {
			ce := core.AuthError(op+": token refresh failed", refreshErr)
			ce.Status = http.StatusUnauthorized
			return ce
		}
		resp, err = c.t.roundTrip(ctx, req, fresh)
		if err != nil {
			return err
		}
	}

	return decode(op, resp, out)
}
