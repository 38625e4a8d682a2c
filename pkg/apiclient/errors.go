package apiclient

import (
	"errors"
	"fmt"
)

const (
	// MessageNotAuthenticated is returned when no stored credential is available.
	MessageNotAuthenticated = "Not authenticated"
	// MessageRequestFailed is the last-resort message for non-2xx responses.
	MessageRequestFailed = "Request failed"
)

// Kind classifies where a failure came from. Status and Message stay the
// primary contract; Kind only lets Go callers branch without string matching.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindHTTP            Kind = "http"
	KindTransport       Kind = "transport"
	KindInvalidRequest  Kind = "invalid_request"
	KindInvalidResponse Kind = "invalid_response"
)

// Error is the only error shape returned by Client. Status is the HTTP status
// of the response, or 0 when no response was received.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	Kind    Kind   `json:"kind,omitempty"`
	// Detail carries a short excerpt of a non-JSON error body. It never replaces Message.
	Detail string `json:"detail,omitempty"`

	cause error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%d %s", e.Status, e.Message)
	}
	return e.Message
}

// Unwrap exposes the transport or decoding error behind the failure, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// AsError extracts an *Error from err.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthenticated reports whether err is a missing-credential failure or a 401 response.
func IsUnauthenticated(err error) bool {
	apiErr, ok := AsError(err)
	if !ok {
		return false
	}
	return apiErr.Kind == KindUnauthenticated || apiErr.Status == 401
}

func unauthenticated(cause error) *Error {
	return &Error{Status: 401, Message: MessageNotAuthenticated, Kind: KindUnauthenticated, cause: cause}
}

func transportError(cause error) *Error {
	return &Error{Message: cause.Error(), Kind: KindTransport, cause: cause}
}

func invalidRequest(msg string, cause error) *Error {
	if cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, cause)
	}
	return &Error{Message: msg, Kind: KindInvalidRequest, cause: cause}
}

func invalidResponse(status int, cause error) *Error {
	return &Error{
		Status:  status,
		Message: fmt.Sprintf("invalid response shape: %v", cause),
		Kind:    KindInvalidResponse,
		cause:   cause,
	}
}
