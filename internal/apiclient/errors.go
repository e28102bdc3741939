package apiclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/rbac-console/rbac-console/internal/shared"
)

// FieldViolation points a validation message at a request field.
type FieldViolation struct {
	Field struct {
		Elements []struct {
			FieldName string `json:"fieldName"`
		} `json:"elements"`
	} `json:"field"`
	Message string `json:"message"`
}

// ErrorDetail is one entry of an RPC status details list.
type ErrorDetail struct {
	Type       string           `json:"@type"`
	Violations []FieldViolation `json:"violations"`
}

type errorBody struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Details []ErrorDetail `json:"details"`
}

// APIError is a failed remote call.
type APIError struct {
	Status  int
	Message string
	Details []ErrorDetail
	cause   error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap exposes the transport error for network failures.
func (e *APIError) Unwrap() error {
	return e.cause
}

// Is maps well-known statuses onto the shared sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case shared.ErrUnauthenticated:
		return e.Status == http.StatusUnauthorized
	case shared.ErrForbidden:
		return e.Status == http.StatusForbidden
	case shared.ErrNotFound:
		return e.Status == http.StatusNotFound
	}
	return false
}

// FieldErrors maps the first field of each violation to its message.
func (e *APIError) FieldErrors() map[string]string {
	out := map[string]string{}
	for _, d := range e.Details {
		for _, v := range d.Violations {
			if len(v.Field.Elements) == 0 || v.Field.Elements[0].FieldName == "" {
				continue
			}
			if _, ok := out[v.Field.Elements[0].FieldName]; !ok {
				out[v.Field.Elements[0].FieldName] = v.Message
			}
		}
	}
	return out
}

// Status returns the HTTP status carried by err, or 0.
func Status(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// Message returns a user-facing message for err.
func Message(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Something went wrong, please try again"
}

func newAPIError(status int, decoded any, raw []byte) *APIError {
	body, _ := decoded.(*errorBody)
	if body == nil || (body.Message == "" && len(body.Details) == 0) {
		body = &errorBody{}
		_ = json.Unmarshal(raw, body)
	}
	msg := body.Message
	if msg == "" {
		msg = fmt.Sprintf("request failed with status code %d", status)
	}
	return &APIError{Status: status, Message: upperFirst(msg), Details: body.Details}
}

func networkError(err error) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: upperFirst(err.Error()), cause: err}
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	// Casers keep state and are not shared between goroutines.
	return cases.Upper(language.Und).String(string(r)) + s[size:]
}
