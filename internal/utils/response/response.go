// Package response provides helpers for writing consistent JSON HTTP responses.
//
// Success responses carry whatever shape the route returns (a student, a
// list of students) or no body at all. Error responses always use the
// Response envelope, so API consumers know what a failure looks like.
package response

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ─────────────────────────────────────────────────────────────────────────────
// Response is the standard envelope for errors and status replies:
//
//	{ "status": "error", "error": "field Name is required" }
//	{ "status": "ok" }
//
// ─────────────────────────────────────────────────────────────────────────────
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Status string constants, so a typo is caught by the compiler.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// WriteJSON writes data as JSON with the given HTTP status code.
//
// Order matters: Header() → WriteHeader() → body. Once WriteHeader is
// called, headers are locked.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	return json.NewEncoder(w).Encode(data)
}

// Empty writes status without a body, e.g. 201 after a create or 204
// after a delete.
func Empty(w http.ResponseWriter, status int) {
	w.WriteHeader(status)
}

// OK is the body of a successful status reply such as GET /health.
func OK() Response {
	return Response{Status: StatusOK}
}

// GeneralError wraps any error into the envelope. Use it for decode
// errors, not-found errors and datastore failures:
//
//	response.WriteJSON(w, http.StatusInternalServerError, response.GeneralError(err))
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// ValidationError converts the field errors of go-playground/validator
// into one human-readable Response:
//
//	{ "status": "error", "error": "field Name is required, field Age must be 0 or greater" }
//
// ─────────────────────────────────────────────────────────────────────────────
func ValidationError(errs validator.ValidationErrors) Response {
	errMessages := make([]string, 0, len(errs))

	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is required", e.Field()))
		case "email":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be a valid email address", e.Field()))
		case "gte":
			errMessages = append(errMessages,
				fmt.Sprintf("field %s must be %s or greater", e.Field(), e.Param()))
		default:
			errMessages = append(errMessages,
				fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}

	return Response{
		Status: StatusError,
		Error:  strings.Join(errMessages, ", "),
	}
}
