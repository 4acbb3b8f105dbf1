package httpclient

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/forgeci/pubforge/internal/platform/requestid"
)

// New returns an http.Client whose transport tags every request with an
// X-Request-Id and logs method, host, path, status and duration. Header
// values are never logged, so bearer credentials cannot leak through
// the request log.
func New(logger *slog.Logger, timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &loggingTransport{
			logger: logger,
			next:   NewTransport(),
		},
	}
}

type loggingTransport struct {
	logger *slog.Logger
	next   http.RoundTripper
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	id := req.Header.Get("X-Request-Id")
	if id == "" {
		newID, err := requestid.New()
		if err == nil {
			id = newID
			req = req.Clone(req.Context())
			req.Header.Set("X-Request-Id", id)
		}
	}

	start := time.Now()
	resp, err := t.next.RoundTrip(req)
	attrs := []any{
		"request_id", id,
		"method", req.Method,
		"host", req.URL.Host,
		"path", req.URL.Path,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		if t.logger != nil {
			t.logger.Error("http request failed", append(attrs, "error", err.Error())...)
		}
		return nil, err
	}
	if t.logger != nil {
		attrs = append(attrs, "status", resp.StatusCode)
		if resp.StatusCode >= 500 {
			t.logger.Error("http request", attrs...)
		} else {
			t.logger.Info("http request", attrs...)
		}
	}
	return resp, nil
}

// StatusError reports a non-success response without echoing the body,
// which may contain token material on auth endpoints.
func StatusError(op string, status int) error {
	return fmt.Errorf("%s: unexpected status %d", op, status)
}

// NewTransport returns the dialer and TLS timeouts shared by every
// outbound client, the registry and staging stores included.
func NewTransport() *http.Transport {
	dialer := &net.Dialer{
		Timeout:   5 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}
