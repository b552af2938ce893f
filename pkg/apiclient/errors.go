package apiclient

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// APIError is an error response from the Seaward API, decoded from its
// RFC 7807 problem body when possible.
type APIError struct {
	Status int
	Title  string
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s", e.Title, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s (%d)", e.Title, e.Status)
}

// IsNotFound reports whether err is a 404 API error.
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusNotFound
}

// IsPreconditionFailed reports whether err is a 412 API error.
func IsPreconditionFailed(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Status == http.StatusPreconditionFailed
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{Status: status, Title: http.StatusText(status)}

	var problem struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &problem); err == nil {
		if problem.Title != "" {
			apiErr.Title = problem.Title
		}
		apiErr.Detail = problem.Detail
	}
	return apiErr
}
