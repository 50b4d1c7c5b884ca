// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"
)

// Sentinel errors for domain layer.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrDuplicate    = errors.New("duplicate entry")
	ErrValidation   = errors.New("validation failed")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrConflict     = errors.New("conflict")
	ErrUnavailable  = errors.New("temporarily unavailable")
)

// Mapping binds a domain error to a problem status and title.
type Mapping struct {
	Target error
	Status int
	Title  string
}

var defaultMappings = []Mapping{
	{Target: ErrNotFound, Status: http.StatusNotFound, Title: "Not Found"},
	{Target: ErrDuplicate, Status: http.StatusConflict, Title: "Duplicate"},
	{Target: ErrValidation, Status: http.StatusBadRequest, Title: "Validation Failed"},
	{Target: ErrForbidden, Status: http.StatusForbidden, Title: "Forbidden"},
	{Target: ErrUnauthorized, Status: http.StatusUnauthorized, Title: "Unauthorized"},
	{Target: ErrConflict, Status: http.StatusConflict, Title: "Conflict"},
	{Target: ErrUnavailable, Status: http.StatusServiceUnavailable, Title: "Service Unavailable"},
}

// RespondError maps domain errors to HTTP responses using RFC7807.
// Extra mappings are consulted before the package defaults, in order.
func RespondError(w http.ResponseWriter, err error, extra ...Mapping) {
	status, title := StatusFor(err, extra...)
	detail := ""
	if status != http.StatusInternalServerError {
		detail = err.Error()
	}
	Problem(w, status, title, detail)
}

// StatusFor resolves the HTTP status and title for err.
func StatusFor(err error, extra ...Mapping) (int, string) {
	for _, m := range extra {
		if m.Target != nil && errors.Is(err, m.Target) {
			return m.Status, m.Title
		}
	}
	for _, m := range defaultMappings {
		if errors.Is(err, m.Target) {
			return m.Status, m.Title
		}
	}
	return http.StatusInternalServerError, "Internal Error"
}
