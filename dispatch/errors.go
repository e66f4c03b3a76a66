// Package dispatch implements the request/response layer between user code
// and a backend (the native C SDK or the in-process mock). It validates
// requests, executes them synchronously against the configured backend, and
// converts every native status code into a typed Error that preserves the
// original code while exposing a coarse kind callers can act on.
package dispatch

import (
	"errors"
	"fmt"

	"github.com/gurre/greengrass-core/ffi"
)

// ErrorKind classifies a failure coarsely enough for callers to decide on
// retry without consulting native documentation.
type ErrorKind int

const (
	// KindInvalidArgument means caller-supplied data violates SDK
	// constraints. Never retry.
	KindInvalidArgument ErrorKind = iota
	// KindTransient means the call failed for a reason expected to clear,
	// such as temporary resource exhaustion. Callers may retry.
	KindTransient
	// KindPermanent means the failure will not clear without a
	// configuration change. Do not retry.
	KindPermanent
	// KindNotFound means the referenced resource, such as a shadow
	// document, does not exist.
	KindNotFound
	// KindAlreadyRegistered means a handler registration conflicted with
	// an existing registration for the same event.
	KindAlreadyRegistered
	// KindInternal means a codec or FFI marshalling failure. It indicates
	// a bug and is always surfaced.
	KindInternal
)

// String returns the kind's name.
func (k ErrorKind) String() string {
	switch k {
	case KindInvalidArgument:
		return "invalid_argument"
	case KindTransient:
		return "transient"
	case KindPermanent:
		return "permanent"
	case KindNotFound:
		return "not_found"
	case KindAlreadyRegistered:
		return "already_registered"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error is the failure descriptor returned by every dispatch operation. It
// carries the coarse kind for retry decisions and the original native status
// code for diagnostics.
type Error struct {
	Kind    ErrorKind
	Code    ffi.Code // native status code; CodeSuccess when the failure is not native
	Message string
	cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != ffi.CodeSuccess {
		return fmt.Sprintf("%s (%s): %s", e.Kind, e.Code, e.Message)
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.cause }

// Retryable reports whether a caller-side retry could reasonably succeed.
func (e *Error) Retryable() bool { return e.Kind == KindTransient }

// NewError creates an Error with the given kind and message.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an Error with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError creates an Error whose cause is err, preserving it for
// errors.Is/As inspection.
func WrapError(kind ErrorKind, err error, message string) *Error {
	return &Error{Kind: kind, Message: message, cause: err}
}

// KindOf extracts the ErrorKind from err. Errors that did not originate in
// this layer are classified as internal, since they indicate something
// escaped the dispatch contract.
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}

// FromCode converts a native status code into an Error, or nil for success.
// The classification of each code is fixed by the native SDK's documented
// behavior: out-of-memory clears as the process sheds load, while invalid
// state, internal failure, and terminate all require operator intervention.
func FromCode(code ffi.Code) *Error {
	switch code {
	case ffi.CodeSuccess:
		return nil
	case ffi.CodeOutOfMemory:
		return &Error{Kind: KindTransient, Code: code, Message: "process out of memory"}
	case ffi.CodeInvalidParameter:
		return &Error{Kind: KindInvalidArgument, Code: code, Message: "invalid input parameter"}
	case ffi.CodeInvalidState:
		return &Error{Kind: KindPermanent, Code: code, Message: "invalid runtime state"}
	case ffi.CodeInternalFailure:
		return &Error{Kind: KindPermanent, Code: code, Message: "internal runtime failure"}
	case ffi.CodeTerminate:
		return &Error{Kind: KindPermanent, Code: code, Message: "remote signal to terminate received"}
	default:
		return &Error{Kind: KindPermanent, Code: code, Message: fmt.Sprintf("unknown native error code %d", code)}
	}
}

// FromStatus converts a non-success request status into an Error, or nil for
// statuses that carry a usable response. GG_REQUEST_AGAIN signals the
// runtime's work queue was full, which clears on its own.
func FromStatus(status ffi.RequestStatus) *Error {
	switch status {
	case ffi.RequestStatusSuccess, ffi.RequestStatusHandled:
		return nil
	case ffi.RequestStatusAgain:
		return &Error{Kind: KindTransient, Message: "runtime queue full, try again"}
	case ffi.RequestStatusUnhandled:
		return &Error{Kind: KindPermanent, Message: "request was not handled by the runtime"}
	default:
		return &Error{Kind: KindPermanent, Message: fmt.Sprintf("unknown request status %s", status)}
	}
}

// FromResponseCode converts an HTTP-style status embedded in a runtime error
// payload into an Error, or nil for 2xx.
func FromResponseCode(status int) *Error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == 404:
		return &Error{Kind: KindNotFound, Message: "resource not found"}
	case status == 401 || status == 403:
		return &Error{Kind: KindPermanent, Message: fmt.Sprintf("unauthorized (status %d)", status)}
	case status >= 500:
		return &Error{Kind: KindTransient, Message: fmt.Sprintf("runtime error (status %d)", status)}
	default:
		return &Error{Kind: KindPermanent, Message: fmt.Sprintf("request rejected (status %d)", status)}
	}
}
