package mcpui

import (
	"errors"
	"fmt"
	"time"
)

// Kind classifies adapter errors by how they reach the widget. Every failure
// resolves into a message-response reply; nothing escapes as a panic that
// could destabilize the host page.
type Kind string

const (
	// KindUnsupportedCapability indicates the action has no mapping in the
	// active host family (e.g. link under the capability family).
	KindUnsupportedCapability Kind = "unsupported_capability"

	// KindTimeout indicates a pending host-bound call exceeded the configured
	// duration. The underlying host call is abandoned, not retried.
	KindTimeout Kind = "timeout"

	// KindHostRejection indicates an explicit host-side error: a JSON-RPC
	// error object or a failed capability call.
	KindHostRejection Kind = "host_rejection"
)

// Error is a categorized adapter error. Name is the wire-visible error name
// carried in the message-response error payload.
type Error struct {
	Msg   string
	Name  string
	Kind  Kind
	Cause error
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Cause)
	}
	return e.Msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// NewUnsupportedCapabilityError creates an error for an action the active
// host family cannot map.
func NewUnsupportedCapabilityError(action string) *Error {
	return &Error{
		Msg:  fmt.Sprintf("host does not support %q", action),
		Name: "UnsupportedCapabilityError",
		Kind: KindUnsupportedCapability,
	}
}

// NewTimeoutError creates an error for a call that never settled within d.
func NewTimeoutError(d time.Duration) *Error {
	return &Error{
		Msg:  fmt.Sprintf("request timed out after %s", d),
		Name: "TimeoutError",
		Kind: KindTimeout,
	}
}

// NewHostRejectionError creates an error for an explicit host-side failure.
// The host's own message is forwarded verbatim.
func NewHostRejectionError(msg string, cause error) *Error {
	return &Error{
		Msg:   msg,
		Name:  "HostError",
		Kind:  KindHostRejection,
		Cause: cause,
	}
}

// IsUnsupportedCapability returns true if the error or any wrapped error is
// an unsupported-capability error.
func IsUnsupportedCapability(err error) bool {
	return kindOf(err) == KindUnsupportedCapability
}

// IsTimeout returns true if the error or any wrapped error is a timeout.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsHostRejection returns true if the error or any wrapped error is a
// host-reported failure.
func IsHostRejection(err error) bool {
	return kindOf(err) == KindHostRejection
}

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// ResponseError is the wire shape of an error inside a message-response
// payload.
type ResponseError struct {
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
}

// ToResponseError converts any error into its wire shape. Categorized errors
// keep their name so the widget can distinguish timeouts from host-reported
// failures; other errors carry only a message.
func ToResponseError(err error) *ResponseError {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return &ResponseError{Message: e.Msg, Name: e.Name}
	}
	return &ResponseError{Message: err.Error()}
}
