package youtrack

import (
	"errors"
	"fmt"
	"net/http"
)

// maxBodyExcerpt bounds how much of an error response body gets carried
// in an APIError. YouTrack error bodies are short JSON documents; the
// cap only matters when a proxy returns an HTML error page.
const maxBodyExcerpt = 512

// APIError is a non-2xx response from the YouTrack REST API.
type APIError struct {
	StatusCode int
	Body       string
}

func newAPIError(statusCode int, body []byte) *APIError {
	excerpt := string(body)
	if len(excerpt) > maxBodyExcerpt {
		excerpt = excerpt[:maxBodyExcerpt] + "..."
	}
	return &APIError{StatusCode: statusCode, Body: excerpt}
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("youtrack API error (%d)", e.StatusCode)
	}
	return fmt.Sprintf("youtrack API error (%d): %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// IsForbidden reports whether err is a 403 from the API, which usually
// means the token lacks a permission rather than the resource missing.
func IsForbidden(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusForbidden
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized
}

// IsMethodNotAllowed reports whether err is a 405 from the API. YouTrack
// answers 405 when a workflow blocks a state transition.
func IsMethodNotAllowed(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusMethodNotAllowed
}

// retryableError wraps an error to indicate it can be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryableError checks if an error should be retried.
func isRetryableError(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
