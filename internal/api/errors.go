// ABOUTME: API error types and defensive decoding of backend error payloads
// ABOUTME: The backend's "detail" field may be a string or an array of field errors

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/tidwall/gjson"
)

// Sentinel errors for callers that only care about the error class.
var (
	// ErrUnauthorized indicates the backend rejected the access token.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSessionExpired indicates the refresh exchange failed and the
	// stored tokens were cleared; the user must log in again.
	ErrSessionExpired = errors.New("session expired, please log in again")

	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// Error is a non-2xx response from the backend.
type Error struct {
	Status  int
	Message string
	// Fields maps field name to message for 400/422 validation failures.
	Fields map[string]string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned status %d", e.Status)
}

// Unwrap maps well-known statuses onto sentinel errors so callers can
// use errors.Is without inspecting status codes.
func (e *Error) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return nil
}

// IsValidation reports whether the error carries field-level messages.
func (e *Error) IsValidation() bool {
	return len(e.Fields) > 0
}

// decodeError builds an *Error from a response body. The backend emits
// either {"detail": "message"} or {"detail": [{"loc": [...,"field"],
// "msg": "message"}, ...]}; anything else degrades to the raw status.
func decodeError(status int, body []byte) *Error {
	apiErr := &Error{Status: status}

	detail := gjson.GetBytes(body, "detail")
	switch {
	case detail.Type == gjson.String:
		apiErr.Message = detail.String()
	case detail.IsArray():
		apiErr.Fields = make(map[string]string)
		for _, item := range detail.Array() {
			field := "non_field"
			if loc := item.Get("loc"); loc.IsArray() {
				if parts := loc.Array(); len(parts) > 0 {
					field = parts[len(parts)-1].String()
				}
			}
			apiErr.Fields[field] = item.Get("msg").String()
		}
		apiErr.Message = "validation failed"
	default:
		// Some endpoints use {"error": "..."} instead of detail.
		if msg := gjson.GetBytes(body, "error"); msg.Type == gjson.String {
			apiErr.Message = msg.String()
		}
	}

	return apiErr
}
