package graphql

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies API failures.
type ErrorKind string

const (
	// ErrorTransport indicates the request never produced a response.
	ErrorTransport ErrorKind = "transport"
	// ErrorClient indicates a 4xx response.
	ErrorClient ErrorKind = "client"
	// ErrorServer indicates a 5xx or otherwise unexpected response.
	ErrorServer ErrorKind = "server"
	// ErrorGraphQL indicates a 200 response carrying GraphQL errors.
	ErrorGraphQL ErrorKind = "graphql"
	// ErrorDecode indicates an unreadable response body.
	ErrorDecode ErrorKind = "decode"
)

// ErrorEnvelope is the error body the API returns for failed requests.
type ErrorEnvelope struct {
	ErrorMessages []string `json:"error_messages"`
	HTTPCode      int      `json:"http_code"`
	KSRCode       string   `json:"ksr_code,omitempty"`
}

// ErrorMessage returns the first error message, or "".
func (e *ErrorEnvelope) ErrorMessage() string {
	if e == nil {
		return ""
	}
	for _, msg := range e.ErrorMessages {
		if msg = strings.TrimSpace(msg); msg != "" {
			return msg
		}
	}
	return ""
}

// APIError wraps API failures with a stable classification.
type APIError struct {
	Kind     ErrorKind
	Op       string
	Status   int
	Message  string
	Envelope *ErrorEnvelope
	Err      error
}

func (e *APIError) Error() string {
	if e == nil {
		return "api error"
	}
	if msg := e.Envelope.ErrorMessage(); msg != "" {
		return msg
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s failed: %d %s", e.Op, e.Status, http.StatusText(e.Status))
	}
	if e.Op != "" {
		return fmt.Sprintf("%s failed", e.Op)
	}
	return "api error"
}

func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether repeating the request may succeed.
func (e *APIError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind == ErrorTransport || e.Kind == ErrorServer
}

// KindForStatus maps an HTTP status to an ErrorKind. Success statuses map to "".
func KindForStatus(status int) ErrorKind {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status >= 400 && status < 500:
		return ErrorClient
	default:
		return ErrorServer
	}
}

// EnvelopeFromError extracts the ErrorEnvelope carried by err, if any.
func EnvelopeFromError(err error) *ErrorEnvelope {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Envelope
	}
	return nil
}

// DisplayMessage returns the message a screen should show for err.
func DisplayMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := EnvelopeFromError(err).ErrorMessage(); msg != "" {
		return msg
	}
	return err.Error()
}
