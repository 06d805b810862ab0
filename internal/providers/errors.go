package providers

import (
	"fmt"
	"net/http"
	"strings"
)

// TransportError is a failed completion request. StatusCode is zero when
// no HTTP response was received.
type TransportError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *TransportError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
	case e.Err != nil:
		return "transport: " + e.Err.Error()
	default:
		return "transport: " + e.Message
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

func (e *TransportError) IsServerError() bool {
	return e.StatusCode >= 500
}

// retryable reports whether another attempt may succeed.
func (e *TransportError) retryable() bool {
	switch {
	case e.StatusCode == 0:
		return true
	case e.StatusCode == http.StatusRequestTimeout,
		e.StatusCode == http.StatusConflict,
		e.StatusCode == http.StatusTooManyRequests:
		return true
	}
	return e.IsServerError()
}

func friendlyHTTPError(code int, body []byte) string {
	if code == http.StatusTooManyRequests {
		return "rate limit exceeded"
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
