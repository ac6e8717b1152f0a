// Package upstream is the outbound HTTP client used by every network-backed
// tool. Each call gets a per-attempt timeout, bounded retries with exponential
// backoff, and a classified *Error when it finally fails.
package upstream

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

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultTimeout        = 8 * time.Second
	DefaultRetries        = 2
	DefaultInitialBackoff = 500 * time.Millisecond

	maxBodyBytes      = 8 << 20
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"
)

// Observer receives one event per attempt. outcome is "ok" or a Code.
type Observer interface {
	ObserveUpstream(host, outcome string, elapsed time.Duration)
}

// Config is passed explicitly to NewClient; nothing is read from the environment.
type Config struct {
	Timeout        time.Duration
	Retries        int
	InitialBackoff time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
	Observer       Observer
	// Production suppresses body snippets in debug logs.
	Production bool
	// NewTimer overrides the backoff timer; tests use it to skip real sleeps.
	NewTimer func() backoff.Timer
}

// Request describes one logical call. Zero fields fall back to the client defaults.
type Request struct {
	Method  string
	Headers map[string]string
	Body    []byte
	Timeout time.Duration
	Retries *int
}

// Retries returns a pointer for Request.Retries.
func Retries(n int) *int { return &n }

// Meta describes the response that produced a Result.
type Meta struct {
	URL         string `json:"url"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
}

// Result is a successful response. Data is the raw JSON body, or null when
// the body was empty.
type Result struct {
	Data json.RawMessage
	Meta Meta
}

// Decode unmarshals Data into v.
func (r *Result) Decode(v any) error {
	return json.Unmarshal(r.Data, v)
}

type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = DefaultInitialBackoff
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{cfg: cfg}
}

// PostJSON marshals payload and sends it with a JSON content type.
func (c *Client) PostJSON(ctx context.Context, rawURL string, headers map[string]string, payload any) (*Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("upstream: encode request: %w", err)
	}
	h := make(map[string]string, len(headers)+1)
	for k, v := range headers {
		h[k] = v
	}
	h[headerContentType] = mimeJSON
	return c.FetchJSON(ctx, rawURL, Request{Method: http.MethodPost, Headers: h, Body: body})
}

// FetchJSON performs req against rawURL, retrying timeouts, 429 responses and
// transport failures. Backoff before retry n is InitialBackoff*2^n.
// Cancelling ctx aborts immediately without further attempts.
func (c *Client) FetchJSON(ctx context.Context, rawURL string, req Request) (*Result, error) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = c.cfg.Timeout
	}
	retries := c.cfg.Retries
	if req.Retries != nil && *req.Retries >= 0 {
		retries = *req.Retries
	}

	var (
		result  *Result
		attempt int
	)
	operation := func() error {
		attempt++
		res, err := c.attempt(ctx, rawURL, req, timeout, attempt)
		if err == nil {
			result = res
			return nil
		}
		var upErr *Error
		if errors.As(err, &upErr) && upErr.Retryable() {
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.cfg.Logger.Debug("upstream retry",
			"url", rawURL,
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	}

	var timer backoff.Timer
	if c.cfg.NewTimer != nil {
		timer = c.cfg.NewTimer()
	}
	if err := backoff.RetryNotifyWithTimer(operation, c.schedule(ctx, retries), notify, timer); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) schedule(ctx context.Context, retries int) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialBackoff
	exp.RandomizationFactor = 0
	exp.Multiplier = 2
	exp.MaxInterval = c.cfg.InitialBackoff << 16
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithMaxRetries(backoff.WithContext(exp, ctx), uint64(retries))
}

func (c *Client) attempt(ctx context.Context, rawURL string, req Request, timeout time.Duration, attempt int) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(attemptCtx, method, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("upstream: build request: %w", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	started := time.Now()
	host := hostOf(rawURL)

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, c.observe(host, started, c.transportError(ctx, attemptCtx, rawURL, err))
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return nil, c.observe(host, started, c.transportError(ctx, attemptCtx, rawURL, readErr))
	}

	meta := Meta{URL: rawURL, Status: resp.StatusCode, ContentType: resp.Header.Get(headerContentType)}
	c.logResponse(meta, raw, attempt)

	res, classErr := classify(meta, raw)
	if classErr != nil {
		return nil, c.observe(host, started, classErr)
	}
	c.observe(host, started, nil)
	return res, nil
}

// classify turns a received response into a Result or a coded *Error.
func classify(meta Meta, raw []byte) (*Result, error) {
	fail := func(code Code, msg string) *Error {
		return &Error{
			Code:        code,
			Message:     msg,
			URL:         meta.URL,
			Status:      meta.Status,
			ContentType: meta.ContentType,
			BodySnippet: snippet(raw),
		}
	}

	if meta.Status == http.StatusTooManyRequests {
		return nil, fail(CodeRateLimited, "Rate limited")
	}
	if !strings.Contains(meta.ContentType, mimeJSON) {
		return nil, fail(CodeNonJSON, "Non-JSON response")
	}

	data := json.RawMessage("null")
	if len(bytes.TrimSpace(raw)) > 0 {
		if !json.Valid(raw) {
			return nil, fail(CodeBadJSON, "Invalid JSON body")
		}
		data = json.RawMessage(raw)
	}

	if meta.Status < 200 || meta.Status > 299 {
		e := fail(CodeHTTPError, "HTTP Error")
		e.Data = data
		return nil, e
	}
	return &Result{Data: data, Meta: meta}, nil
}

func (c *Client) transportError(parent, attemptCtx context.Context, rawURL string, err error) error {
	if parentErr := parent.Err(); parentErr != nil {
		return parentErr
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) {
		return &Error{Code: CodeTimeout, Message: "Request timeout", URL: rawURL, Err: err}
	}
	return &Error{Code: CodeNetwork, Message: "Network error", URL: rawURL, Err: err}
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func (c *Client) observe(host string, started time.Time, err error) error {
	if c.cfg.Observer == nil {
		return err
	}
	outcome := "ok"
	var upErr *Error
	switch {
	case errors.As(err, &upErr):
		outcome = string(upErr.Code)
	case err != nil:
		outcome = "canceled"
	}
	c.cfg.Observer.ObserveUpstream(host, outcome, time.Since(started))
	return err
}

func (c *Client) logResponse(meta Meta, raw []byte, attempt int) {
	attrs := []any{
		"url", meta.URL,
		"status", meta.Status,
		"content_type", meta.ContentType,
		"attempt", attempt,
	}
	if !c.cfg.Production && !strings.Contains(meta.ContentType, mimeJSON) && len(raw) > 0 {
		attrs = append(attrs, "body", snippet(raw))
	}
	c.cfg.Logger.Debug("upstream response", attrs...)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}
