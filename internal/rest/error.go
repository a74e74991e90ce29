package rest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// APIError is the failure type for every unsuccessful API call. Status is the
// HTTP status code of the response, or 0 when the request never produced a
// response (connection refused, DNS failure, client-side timeout).
type APIError struct {
	// Status is the HTTP status code, or 0 for transport-level failures.
	Status int
	// Message is a short human-readable description of the failure.
	Message string
	// Body holds the parsed error body, when the server sent one.
	Body *ErrorBody
	// URL is the request URL that failed.
	URL string
	// Timeout reports whether the failure was a client-side deadline expiry,
	// as opposed to a server-reported 504.
	Timeout bool

	cause error
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		if e.Timeout {
			return fmt.Sprintf("catalog api: request timed out: %s", e.URL)
		}
		return fmt.Sprintf("catalog api: connection failed: %s", e.URL)
	}
	return fmt.Sprintf("catalog api: %d %s: %s", e.Status, http.StatusText(e.Status), e.Message)
}

// Unwrap exposes the underlying transport error, if any.
func (e *APIError) Unwrap() error { return e.cause }

// NotFound reports whether the failure is a 404.
func (e *APIError) NotFound() bool { return e.Status == http.StatusNotFound }

// ErrorBody is the parsed shape of an API error response. Servers in the
// wild answer with several shapes; see ParseErrorBody.
type ErrorBody struct {
	Message   string
	Errors    []string
	ErrorText string
}

// errEnvelope matches the known error body shapes loosely enough that any
// of them decodes without failing.
type errEnvelope struct {
	Message string            `json:"message"`
	Errors  []json.RawMessage `json:"errors"`
	Error   json.RawMessage   `json:"error"`
}

// fieldError is one entry of an "errors" array in its structured form.
type fieldError struct {
	Message string `json:"message"`
}

// ParseErrorBody extracts a structured error from a response body. It tries
// the known shapes in a fixed priority order: a top-level "message" string,
// an "errors" array (of objects with "message", or of plain strings), and a
// top-level "error" string. Unknown or malformed shapes yield nil rather
// than an error: the body is advisory, never load-bearing.
func ParseErrorBody(data []byte) *ErrorBody {
	if len(data) == 0 {
		return nil
	}
	var env errEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil
	}

	body := &ErrorBody{Message: env.Message}

	for _, raw := range env.Errors {
		var fe fieldError
		if err := json.Unmarshal(raw, &fe); err == nil && fe.Message != "" {
			body.Errors = append(body.Errors, fe.Message)
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			body.Errors = append(body.Errors, s)
		}
	}

	if len(env.Error) > 0 {
		var s string
		if err := json.Unmarshal(env.Error, &s); err == nil {
			body.ErrorText = s
		}
	}

	if body.Message == "" && len(body.Errors) == 0 && body.ErrorText == "" {
		return nil
	}
	return body
}

// BestMessage returns the most specific message embedded in the body:
// "message" first, then the joined "errors" array, then the "error" string.
// It returns "" when the body is nil or carries nothing usable.
func (b *ErrorBody) BestMessage() string {
	if b == nil {
		return ""
	}
	if b.Message != "" {
		return b.Message
	}
	if len(b.Errors) > 0 {
		return strings.Join(b.Errors, ". ")
	}
	return b.ErrorText
}
