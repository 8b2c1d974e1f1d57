package apiclient

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
	"strings"
	"time"

	"github.com/dmitrymomot/deskkit/pkg/logger"
	"github.com/dmitrymomot/deskkit/pkg/requestid"
)

const (
	// IdempotencyHeader carries the submit intent key on create requests.
	IdempotencyHeader = "Idempotency-Key"

	defaultUserAgent = "deskkit/1.0"
	maxErrorBody     = 64 * 1024
)

// Client talks to the helpdesk REST API. Zero value is not usable; use New.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	timeout   time.Duration
	slot      *CredentialSlot
	logger    *slog.Logger
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Useful for custom transports and tests.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.http = c
		}
	}
}

// WithTimeout sets the per-request timeout. A client passed with
// WithHTTPClient is not modified; the timeout applies to a copy of it.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.timeout = d
		}
	}
}

// WithCredentialSlot shares a slot, normally the one owned by the session manager.
func WithCredentialSlot(s *CredentialSlot) Option {
	return func(cl *Client) {
		if s != nil {
			cl.slot = s
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		if l != nil {
			cl.logger = l
		}
	}
}

func WithUserAgent(ua string) Option {
	return func(cl *Client) {
		if ua != "" {
			cl.userAgent = ua
		}
	}
}

// New creates a client for the API rooted at baseURL (for example "https://desk.example.com/api").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("base url must be an absolute http(s) url: %q", baseURL)
	}

	c := &Client{
		baseURL: u,
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		slot:      NewCredentialSlot(),
		logger:    logger.Discard(),
		userAgent: defaultUserAgent,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.timeout > 0 && c.http.Timeout != c.timeout {
		hc := *c.http
		hc.Timeout = c.timeout
		c.http = &hc
	}
	return c, nil
}

// Slot returns the credential slot used by the client.
func (c *Client) Slot() *CredentialSlot {
	return c.slot
}

// request describes one call.
type request struct {
	method      string
	path        string
	query       url.Values
	body        any
	header      http.Header
	credentials bool
}

// do executes req and decodes a 2xx body into out (when out is non-nil).
func (c *Client) do(ctx context.Context, req request, out any) error {
	ctx, rid := requestid.Ensure(ctx)

	var body io.Reader
	if req.body != nil {
		data, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal %s %s: %w", req.method, req.path, err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL.JoinPath(req.path)
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", req.method, req.path, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(requestid.Header, rid)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range req.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	if req.credentials {
		c.slot.authorize(httpReq)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		c.logger.WarnContext(ctx, "request failed",
			slog.String("method", req.method), slog.String("path", req.path), logger.Error(err))
		return &Error{kind: ErrTransport, cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "request done",
		slog.String("method", req.method),
		slog.String("path", req.path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%s %s: %w", req.method, req.path, ctxErr)
		}
		return &Error{Status: resp.StatusCode, Message: "unreadable response body", kind: ErrTransport, cause: err}
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode, kind: sentinelForStatus(resp.StatusCode)}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var eb errorBody
	if len(data) > 0 && json.Unmarshal(data, &eb) == nil {
		e.Code, e.Field, e.Message = eb.fields()
	}
	return e
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
