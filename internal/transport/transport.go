// Package transport issues telemetry HTTP GET requests.
//
// Sends must never stall the host application: the client carries a hard
// timeout, and callers treat any reported error or non-2xx status as a plain
// failure signal. Transport failures are never fatal to the caller.
package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// DefaultTimeout bounds a single telemetry request end to end.
const DefaultTimeout = 5 * time.Second

// Result reports the outcome of a single send. FinalURL is the URL after any
// redirects, kept for diagnostics.
type Result struct {
	Succeeded bool
	FinalURL  string
	Err       error
}

// Sender issues one telemetry request and reports its outcome.
type Sender interface {
	Send(ctx context.Context, rawURL string) Result
}

// HTTPSender sends telemetry over plain HTTP GET.
type HTTPSender struct {
	client    *http.Client
	userAgent string
}

// NewHTTPSender creates an HTTPSender. A timeout <= 0 uses DefaultTimeout.
func NewHTTPSender(timeout time.Duration) *HTTPSender {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPSender{
		client:    &http.Client{Timeout: timeout},
		userAgent: "ganalytics/1.0",
	}
}

// Send issues a single GET for rawURL. A transport error or a non-2xx status
// both count as failure; the caller decides whether to queue the URL.
func (s *HTTPSender) Send(ctx context.Context, rawURL string) Result {
	reqID := uuid.NewString()
	slog.Debug("HTTPSender.Send: sending telemetry request", "request_id", reqID, "url", rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		slog.Error("HTTPSender.Send: failed to build request", "request_id", reqID, "error", err)
		return Result{Succeeded: false, FinalURL: rawURL, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Debug("HTTPSender.Send: request failed", "request_id", reqID, "error", err)
		return Result{Succeeded: false, FinalURL: rawURL, Err: fmt.Errorf("http get: %w", err)}
	}
	defer resp.Body.Close()
	// Drain the body so the connection can be reused.
	io.Copy(io.Discard, resp.Body)

	finalURL := rawURL
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Debug("HTTPSender.Send: non-2xx response", "request_id", reqID, "status", resp.StatusCode)
		return Result{Succeeded: false, FinalURL: finalURL, Err: fmt.Errorf("server returned %d", resp.StatusCode)}
	}

	slog.Debug("HTTPSender.Send: telemetry request succeeded", "request_id", reqID)
	return Result{Succeeded: true, FinalURL: finalURL}
}
