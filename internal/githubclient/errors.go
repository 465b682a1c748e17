package githubclient

import (
	"errors"
	"fmt"
	"net/http"
)

// APIError is a non-2xx response from the GitHub API
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github API error %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error is a GitHub 404
func IsNotFound(err error) bool {
	return statusOf(err) == http.StatusNotFound
}

// IsUnauthorized checks if the error is a GitHub 401
func IsUnauthorized(err error) bool {
	return statusOf(err) == http.StatusUnauthorized
}

// IsRateLimited checks if the error is a GitHub 429 that survived the retry
func IsRateLimited(err error) bool {
	return statusOf(err) == http.StatusTooManyRequests
}

func statusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
