package ai

import (
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/api/googleapi"
)

var (
	// ErrMalformedResponse means the text model did not return a usable JSON array of drafts.
	ErrMalformedResponse = errors.New("malformed generation response")
	// ErrRateLimited is returned when a client-side quota rejects a call.
	ErrRateLimited = errors.New("generation rate limited")
	// ErrDailyQuotaExceeded is returned when the provider's per-day request
	// budget is spent. It does not clear within a retry window.
	ErrDailyQuotaExceeded = errors.New("generation daily quota exceeded")
	// ErrUnavailable is returned while a provider's circuit breaker is open.
	ErrUnavailable = errors.New("generation provider unavailable")
)

// HTTPError is a non-2xx response from an upstream HTTP API.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream http %d: %s", e.StatusCode, e.Body)
}

// IsRateLimited reports whether err signals an upstream rate limit.
func IsRateLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}
