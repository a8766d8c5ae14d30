package llm

import (
	"errors"
	"fmt"
)

// Kind categorizes provider-neutral errors so callers can branch on
// failure class without knowing which provider produced them.
type Kind string

const (
	// KindConfiguration covers missing credentials, unknown providers,
	// and other setup problems detected before any network call.
	KindConfiguration Kind = "configuration"
	// KindRequest covers requests the provider rejected (4xx-class).
	KindRequest Kind = "provider_request"
	// KindTransport covers network failures, timeouts, and 5xx-class
	// provider outages. Transport errors are retryable.
	KindTransport Kind = "provider_transport"
	// KindContentBlocked marks input rejected by a safety policy.
	KindContentBlocked Kind = "content_blocked"
	// KindToolNotFound marks an invocation of an unregistered tool.
	KindToolNotFound Kind = "tool_not_found"
	// KindToolExecution marks a registered tool handler that failed.
	KindToolExecution Kind = "tool_execution"
)

// Error is the provider-neutral error type. Adapters map vendor SDK errors
// into one of the kinds above and keep the original reachable via Unwrap.
type Error struct {
	Kind       Kind
	Message    string
	Retryable  bool
	StatusCode int   // HTTP status when the provider supplied one
	Err        error // original underlying error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind == kind
	}
	return false
}

// KindOf returns the kind of err, or empty string for foreign errors.
func KindOf(err error) Kind {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Kind
	}
	return ""
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var llmErr *Error
	if errors.As(err, &llmErr) {
		return llmErr.Retryable
	}
	return false
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Kind: KindConfiguration, Message: message}
}

// NewRequestError creates an error for a request the provider rejected.
func NewRequestError(message string, statusCode int, err error) *Error {
	return &Error{Kind: KindRequest, Message: message, StatusCode: statusCode, Err: err}
}

// NewTransportError creates a retryable error for network and 5xx failures.
func NewTransportError(message string, err error) *Error {
	return &Error{Kind: KindTransport, Message: message, Retryable: true, Err: err}
}

// NewContentBlockedError creates an error for input rejected by policy.
func NewContentBlockedError(message string) *Error {
	return &Error{Kind: KindContentBlocked, Message: message}
}

// NewToolNotFoundError creates an error for an unregistered tool name.
func NewToolNotFoundError(name string) *Error {
	return &Error{Kind: KindToolNotFound, Message: fmt.Sprintf("tool %q is not registered", name)}
}

// NewToolExecutionError creates an error for a failed tool handler.
func NewToolExecutionError(name string, err error) *Error {
	return &Error{Kind: KindToolExecution, Message: fmt.Sprintf("tool %q failed", name), Err: err}
}
