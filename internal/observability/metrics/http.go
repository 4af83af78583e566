package metrics

import (
	"net/http"
	"strconv"
	"time"
)

// Transport wraps an http.RoundTripper and records explorer request metrics.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return roundTripperFunc(func(r *http.Request) (*http.Response, error) {
		if !enabled {
			return next.RoundTrip(r)
		}

		start := time.Now()
		resp, err := next.RoundTrip(r)

		status := "error"
		if err == nil {
			status = strconv.Itoa(resp.StatusCode)
		}
		explorerRequestsTotal.WithLabelValues(r.Method, r.URL.Host, status).Inc()
		explorerDuration.WithLabelValues(r.Method, r.URL.Host).Observe(time.Since(start).Seconds())

		return resp, err
	})
}

type roundTripperFunc func(*http.Request) (*http.Response, error)

func (f roundTripperFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}
