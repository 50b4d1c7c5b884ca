// Package httpx writes JSON bodies and RFC 7807 problem documents for the
// medstock HTTP surface.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeProblem = "application/problem+json"
)

// ProblemDetail is the error body. Type is omitted, which RFC 7807 reads
// as "about:blank".
type ProblemDetail struct {
	Type   string `json:"type,omitempty"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data as application/json.
func JSON(w http.ResponseWriter, status int, data any) {
	write(w, status, contentTypeJSON, data)
}

// Problem writes an application/problem+json body. Detail may be empty.
func Problem(w http.ResponseWriter, status int, title, detail string) {
	write(w, status, contentTypeProblem, ProblemDetail{Title: title, Status: status, Detail: detail})
}

func write(w http.ResponseWriter, status int, contentType string, data any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// DecodeJSON reads exactly one JSON document from the request body.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return io.ErrUnexpectedEOF
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(target); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return errors.New("request body must hold a single JSON document")
	}
	return nil
}
