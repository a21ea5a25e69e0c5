// Package transport is the HTTP capability the tracker uses to reach the
// collector. It performs one request per call and never retries.
package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/gametrace/pkg/logger"
	"github.com/okian/gametrace/pkg/metrics"
)

const (
	defaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// Response is what the tracker needs from an HTTP exchange.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Sender sends one request.
type Sender interface {
	Send(ctx context.Context, method, uri string, headers map[string]string, body []byte) (Response, error)
}

// Option applies a configuration option to the HTTP transport.
type Option func(*HTTP)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(t *HTTP) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// WithClient replaces the underlying client.
func WithClient(c *http.Client) Option {
	return func(t *HTTP) {
		if c != nil {
			t.client = c
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(t *HTTP) {
		if l != nil {
			t.logger = l
		}
	}
}

// HTTP implements Sender on net/http.
type HTTP struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// New creates an HTTP transport.
func New(opts ...Option) *HTTP {
	t := &HTTP{
		client:  &http.Client{},
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.logger == nil {
		t.logger = logger.Get().Named("transport")
	}
	return t
}

// Send performs one request. A non-2xx status is returned as a Response
// together with an error wrapping ErrStatus.
func (t *HTTP) Send(ctx context.Context, method, uri string, headers map[string]string, body []byte) (Response, error) {
	if t == nil || t.client == nil {
		return Response{}, ErrNoClient
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, uri, rd)
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := t.client.Do(req)
	metrics.RecordSendLatency(float64(time.Since(start).Milliseconds()))
	if err != nil {
		t.logger.Debug(ctx, "request failed",
			logger.String("method", method),
			logger.String("uri", uri),
			logger.Error(err),
		)
		return Response{}, fmt.Errorf("%s %s: %w", method, uri, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{StatusCode: resp.StatusCode}, fmt.Errorf("read response: %w", err)
	}
	out := Response{StatusCode: resp.StatusCode, Body: data}
	if !out.OK() {
		return out, fmt.Errorf("%w: %s %s returned %d", ErrStatus, method, uri, resp.StatusCode)
	}
	return out, nil
}
