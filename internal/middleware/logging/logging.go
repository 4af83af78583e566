// Package logging provides structured logging for outbound HTTP requests.
package logging

import (
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// redactedParams are query parameters never written to logs
var redactedParams = []string{"apikey", "api_key"}

// Transport returns an http.RoundTripper that logs every request using structured logging.
// Each entry includes:
// - request_id: run correlation ID stored in the request context
// - method: HTTP method
// - url: request URL with credentials redacted
// - status: response status code (0 on transport error)
// - duration: round trip duration
func Transport(logger *slog.Logger, next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{logger: logger, next: next}
}

type transport struct {
	logger *slog.Logger
	next   http.RoundTripper
}

func (t *transport) RoundTrip(r *http.Request) (*http.Response, error) {
	start := time.Now()
	resp, err := t.next.RoundTrip(r)

	attrs := []any{
		"request_id", middleware.GetReqID(r.Context()),
		"method", r.Method,
		"url", RedactURL(r.URL),
		"duration", time.Since(start).String(),
	}

	if err != nil {
		t.logger.Warn("http request failed", append(attrs, "status", 0, "error", err)...)
		return resp, err
	}

	attrs = append(attrs, "status", resp.StatusCode)
	if resp.StatusCode >= http.StatusBadRequest {
		t.logger.Warn("http request", attrs...)
	} else {
		t.logger.Debug("http request", attrs...)
	}
	return resp, nil
}

// RedactURL returns u as a string with secret query parameters masked
func RedactURL(u *url.URL) string {
	q := u.Query()
	changed := false
	for _, p := range redactedParams {
		if q.Has(p) {
			q.Set(p, "REDACTED")
			changed = true
		}
	}
	if !changed {
		return u.String()
	}
	c := *u
	c.RawQuery = q.Encode()
	return c.String()
}

// RedactEndpoint masks the parts of a service URL that can carry credentials
// (user info, path and query), keeping scheme and host readable. Values without
// a host, such as IPC socket paths, are returned unchanged.
func RedactEndpoint(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "REDACTED"
	}
	if u.Host == "" {
		return raw
	}

	c := url.URL{Scheme: u.Scheme, Host: u.Host}
	if u.User != nil {
		c.User = url.User("REDACTED")
	}
	if u.Path != "" && u.Path != "/" {
		c.Path = "/REDACTED"
	}
	if u.RawQuery != "" {
		c.RawQuery = "REDACTED"
	}
	return c.String()
}
