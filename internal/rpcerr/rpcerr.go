// Package rpcerr defines the fixed set of failure kinds the dispatch engine
// may surface to a remote caller, plus the registration-time sentinels that
// never cross the dispatch boundary.
//
// Only *Error values (and errors wrapping one) are considered safe to expose:
// they either belong to the fixed protocol code space below, or they were
// raised deliberately by handler code as part of its documented contract.
// Everything else is suppressed before it reaches the wire.
package rpcerr

import (
	"errors"
	"fmt"
)

// Protocol-level error codes. The code space follows JSON-RPC 2.0, which the
// rest of the taxonomy is shaped around even for non-JSON protocols.
const (
	CodeParse          = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternal       = -32603

	// Implementation-defined server errors live in a reserved band.
	CodeServerMin = -32099
	CodeServerMax = -32000
)

// Registration and resolution sentinels. These report programmer errors at
// setup time (or a failed lookup during routing) and are never serialized
// into a response.
var (
	// ErrDuplicateMethod is returned when a name collides within a single
	// registry's direct method map.
	ErrDuplicateMethod = errors.New("method name already registered")

	// ErrNotFound is returned by registry lookups when no method matches.
	// The dispatch engine converts it into a MethodNotFound response.
	ErrNotFound = errors.New("method not found")

	// ErrCyclicNamespace is returned when attaching a child registry would
	// make a registry its own descendant.
	ErrCyclicNamespace = errors.New("namespace attachment would create a cycle")
)

// Error is the caller-visible error shape. Handlers may return an *Error
// (or wrap one) to report a domain failure; its code, message, and data are
// propagated to the caller verbatim.
type Error struct {
	Code    int
	Message string
	Data    any
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// New creates a domain error with an application-chosen code.
func New(code int, message string, data any) *Error {
	return &Error{Code: code, Message: message, Data: data}
}

// MethodNotFound reports that no registered method matched the request.
func MethodNotFound() *Error {
	return &Error{Code: CodeMethodNotFound, Message: "Method not found"}
}

// InvalidParams reports that the request arguments did not bind to the
// target's declared parameter schema. The message describes the caller's
// own malformed input and is safe to expose.
func InvalidParams(msg string) *Error {
	return &Error{Code: CodeInvalidParams, Message: "Invalid params", Data: msg}
}

// Internal is the catch-all for unrecognized failures during invocation.
// It deliberately carries no detail about the underlying cause.
func Internal() *Error {
	return &Error{Code: CodeInternal, Message: "Internal error"}
}

// Parse reports that a message could not be decoded into a request document.
func Parse(msg string) *Error {
	return &Error{Code: CodeParse, Message: "Parse error", Data: msg}
}

// InvalidRequest reports a decoded document that is not a valid request.
func InvalidRequest(msg string) *Error {
	return &Error{Code: CodeInvalidRequest, Message: "Invalid Request", Data: msg}
}

// Server creates an implementation-defined server error. The code must fall
// inside the reserved band.
func Server(code int) (*Error, error) {
	if !ValidServerCode(code) {
		return nil, fmt.Errorf("code %d outside server error band [%d, %d]", code, CodeServerMin, CodeServerMax)
	}
	return &Error{Code: code, Message: "Server error"}, nil
}

// ValidServerCode reports whether code lies in the implementation-defined
// server error band.
func ValidServerCode(code int) bool {
	return CodeServerMin <= code && code <= CodeServerMax
}

// FromError extracts the *Error from err's chain, if any. The dispatch
// engine uses this to decide whether a handler failure is a domain error
// (propagated verbatim) or an internal one (suppressed).
func FromError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
