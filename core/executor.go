package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

const IdempotencyKeyHeader = "Idempotency-Key"

// HTTPExecutor performs a single delivery attempt against a subscriber
// endpoint. It owns nothing beyond the network call: classification comes
// back as an Outcome and every state mutation is the caller's job.
//
// Timeouts are deliberately tight. Subscribers must answer fast; a hung
// endpoint may not stall a sweep for more than the configured bounds.
type HTTPExecutor struct {
	client    *http.Client
	bodyLimit int
}

func NewHTTPExecutor(cfg DeliveryConfig) *HTTPExecutor {
	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = time.Second
	}
	readTimeout := cfg.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = time.Second
	}
	bodyLimit := cfg.ResponseBodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 500
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: connectTimeout,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: readTimeout,
		MaxIdleConnsPerHost:   4,
	}
	return &HTTPExecutor{
		client: &http.Client{
			Transport: transport,
			Timeout:   connectTimeout + readTimeout,
			// A redirected POST is a protocol violation risk; surface the
			// 3xx itself and let classification treat it as a failure.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		bodyLimit: bodyLimit,
	}
}

// WithClient swaps the underlying HTTP client. Test hook.
func (e *HTTPExecutor) WithClient(client *http.Client) *HTTPExecutor {
	if client != nil {
		e.client = client
	}
	return e
}

func (e *HTTPExecutor) Attempt(ctx context.Context, event DeliveryEvent, endpoint Endpoint) Outcome {
	if e == nil || e.client == nil {
		return FailureOutcome(0, "", "delivery executor is not configured")
	}
	url := strings.TrimSpace(endpoint.URL)
	if url == "" {
		return FailureOutcome(0, "", "endpoint url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(event.Payload))
	if err != nil {
		return FailureOutcome(0, "", fmt.Sprintf("build request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyKeyHeader, event.EventID)

	resp, err := e.client.Do(req)
	if err != nil {
		return FailureOutcome(0, "", describeTransportError(err))
	}
	defer resp.Body.Close()

	body := e.readTruncated(resp.Body)
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return SuccessOutcome(resp.StatusCode, body)
	}
	return FailureOutcome(
		resp.StatusCode,
		body,
		fmt.Sprintf("endpoint returned status %d", resp.StatusCode),
	)
}

func (e *HTTPExecutor) readTruncated(reader io.Reader) string {
	limited := io.LimitReader(reader, int64(e.bodyLimit))
	data, err := io.ReadAll(limited)
	if err != nil {
		return ""
	}
	return string(data)
}

func describeTransportError(err error) string {
	var netErr net.Error
	switch {
	case errors.As(err, &netErr) && netErr.Timeout():
		return "request timed out"
	case strings.Contains(err.Error(), "connection refused"):
		return "connection refused"
	default:
		message := err.Error()
		// url.Error wraps the method and target; the stored message should
		// read for an operator, not echo internals.
		if idx := strings.LastIndex(message, ": "); idx >= 0 && idx+2 < len(message) {
			message = message[idx+2:]
		}
		return "connection error: " + message
	}
}

var _ Attempter = (*HTTPExecutor)(nil)
