package fetcher

import (
	"log/slog"
	"time"

	"resty.dev/v3"
)

// DefaultTimeout bounds a single request when the caller does not set one.
const DefaultTimeout = 10 * time.Second

// NewHTTPClient creates a new HTTP client for the exchange's public API.
// Failed requests are not retried here: a polling loop simply tries again
// on its next tick.
func NewHTTPClient(baseURL string, timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("Content-Type", "application/json").
		OnError(errorHook)

	return client
}

// errorHook logs failed requests for observability
func errorHook(r *resty.Request, err error) {
	slog.Debug("request failed",
		"url", r.URL,
		"error", err.Error())
}
