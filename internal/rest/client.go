// Package rest implements the HTTP client for the product catalog API.
//
// Every failure is surfaced as a *APIError carrying the HTTP status (or 0
// for transport-level failures) and a human-readable message. Idempotent
// reads are retried on transient failure; writes always fail fast so a
// flaky network cannot duplicate side effects.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-faster/errors"

	"github.com/finexus/catalog-console/internal/domain/product"
)

// maxErrorBody bounds how much of an error response is read for parsing.
const maxErrorBody = 64 << 10

// Config holds the client configuration.
type Config struct {
	// BaseURL is the API root, e.g. "http://localhost:3000/api".
	BaseURL string
	// Timeout is the per-call ceiling for CRUD operations.
	Timeout time.Duration
	// HealthTimeout is the per-call ceiling for health and db-check probes.
	HealthTimeout time.Duration
	// MaxRetries is the number of additional attempts for idempotent reads
	// after the first one fails with a transient error.
	MaxRetries int
}

// Client is the REST client for the product catalog API. It is safe for
// concurrent use.
type Client struct {
	base          *url.URL
	http          *http.Client
	timeout       time.Duration
	healthTimeout time.Duration
	maxRetries    int
}

// NewClient creates a Client. The transport is the outermost RoundTripper of
// the request pipeline; pass nil to use http.DefaultTransport.
func NewClient(cfg Config, transport http.RoundTripper) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "parse base URL")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 5 * time.Second
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &Client{
		base:          base,
		http:          &http.Client{Transport: transport},
		timeout:       cfg.Timeout,
		healthTimeout: cfg.HealthTimeout,
		maxRetries:    cfg.MaxRetries,
	}, nil
}

// ListProducts fetches the catalog, optionally narrowed by filters.
func (c *Client) ListProducts(ctx context.Context, filters *product.Filters) ([]product.Product, error) {
	var out []product.Product
	err := c.do(ctx, callSpec{
		method:    http.MethodGet,
		path:      "/products",
		query:     filters.Query(),
		timeout:   c.timeout,
		retryable: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetProduct fetches a single record by id.
func (c *Client) GetProduct(ctx context.Context, id int64) (*product.Product, error) {
	var out product.Product
	err := c.do(ctx, callSpec{
		method:    http.MethodGet,
		path:      "/products/" + strconv.FormatInt(id, 10),
		timeout:   c.timeout,
		retryable: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateProduct creates a new record and returns it with the server-assigned
// id and timestamps. Never retried.
func (c *Client) CreateProduct(ctx context.Context, in product.CreateProduct) (*product.Product, error) {
	var out product.Product
	err := c.do(ctx, callSpec{
		method:  http.MethodPost,
		path:    "/products",
		body:    in,
		timeout: c.timeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateProduct applies a partial update and returns the updated record.
// Never retried.
func (c *Client) UpdateProduct(ctx context.Context, id int64, in product.UpdateProduct) (*product.Product, error) {
	var out product.Product
	err := c.do(ctx, callSpec{
		method:  http.MethodPut,
		path:    "/products/" + strconv.FormatInt(id, 10),
		body:    in,
		timeout: c.timeout,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteProduct removes a record. The API answers 204 with an empty body.
// Never retried.
func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	return c.do(ctx, callSpec{
		method:  http.MethodDelete,
		path:    "/products/" + strconv.FormatInt(id, 10),
		timeout: c.timeout,
	}, nil)
}

// HealthStatus is the response of the API health endpoint.
type HealthStatus struct {
	Message string `json:"message"`
}

// DatabaseStatus is the response of the database connectivity endpoint.
type DatabaseStatus struct {
	Count int64 `json:"count"`
}

// CheckHealth probes the API root. Uses the shorter health timeout.
func (c *Client) CheckHealth(ctx context.Context) (*HealthStatus, error) {
	var out HealthStatus
	err := c.do(ctx, callSpec{
		method:    http.MethodGet,
		path:      "",
		timeout:   c.healthTimeout,
		retryable: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckDatabase probes database connectivity through the API.
func (c *Client) CheckDatabase(ctx context.Context) (*DatabaseStatus, error) {
	var out DatabaseStatus
	err := c.do(ctx, callSpec{
		method:    http.MethodGet,
		path:      "/products/test",
		timeout:   c.healthTimeout,
		retryable: true,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// IsNotFound reports whether err is an API failure with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// callSpec describes one API call for do.
type callSpec struct {
	method    string
	path      string
	query     url.Values
	body      any
	timeout   time.Duration
	retryable bool
}

// do executes a single API call, applying the per-call timeout and, for
// retryable calls, up to maxRetries additional attempts on transient
// failures. The request body is marshalled once so every attempt sends
// identical bytes.
func (c *Client) do(ctx context.Context, spec callSpec, out any) error {
	u := *c.base
	if spec.path != "" {
		u = *u.JoinPath(spec.path)
	}
	if len(spec.query) > 0 {
		u.RawQuery = spec.query.Encode()
	}

	var payload []byte
	if spec.body != nil {
		var err error
		payload, err = json.Marshal(spec.body)
		if err != nil {
			return errors.Wrap(err, "encode request body")
		}
	}

	attempts := 1
	if spec.retryable {
		attempts += c.maxRetries
	}

	var lastErr *APIError
	for attempt := 0; attempt < attempts; attempt++ {
		apiErr := c.attempt(ctx, spec, &u, payload, out)
		if apiErr == nil {
			return nil
		}
		lastErr = apiErr

		// A done parent context means the caller gave up; retrying would
		// only burn time against a dead deadline.
		if ctx.Err() != nil || !retryableFailure(apiErr) {
			break
		}
	}
	return lastErr
}

// retryableFailure reports whether a failed attempt may be repeated:
// transport failures, client-side timeouts, and server-class statuses.
// Client errors (4xx) are deterministic and never retried.
func retryableFailure(e *APIError) bool {
	return e.Status == 0 || e.Status >= 500
}

// attempt performs one HTTP round trip and decodes the response.
func (c *Client) attempt(ctx context.Context, spec callSpec, u *url.URL, payload []byte, out any) *APIError {
	callCtx, cancel := context.WithTimeout(ctx, spec.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(callCtx, spec.method, u.String(), body)
	if err != nil {
		return &APIError{Status: 0, Message: "build request", URL: u.String(), cause: err}
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{
			Status:  0,
			Message: "connection failed",
			URL:     u.String(),
			Timeout: isTimeout(err),
			cause:   err,
		}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		parsed := ParseErrorBody(data)
		msg := parsed.BestMessage()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &APIError{
			Status:  resp.StatusCode,
			Message: msg,
			Body:    parsed,
			URL:     u.String(),
		}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &APIError{
				Status:  resp.StatusCode,
				Message: "decode response body",
				URL:     u.String(),
				cause:   err,
			}
		}
	} else {
		// Drain so the connection can be reused.
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	}
	return nil
}

// isTimeout reports whether a transport error was a deadline expiry.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
