// Package ffi provides typed access to the native Greengrass C SDK boundary.
// It owns no logic: this package defines the status codes, enums, and limits
// mirrored from the native header, and (behind the greengrass_cgo build tag)
// the raw bindings themselves. Everything above this package works in terms
// of these types so that the mock and native paths report identical codes.
package ffi

// Code is a native SDK status code (gg_error in the C header). Every native
// call returns one; zero means success.
type Code int32

// Native status codes in header order.
const (
	CodeSuccess Code = iota
	CodeOutOfMemory
	CodeInvalidParameter
	CodeInvalidState
	CodeInternalFailure
	CodeTerminate
)

// String returns the native symbol name for diagnostics.
func (c Code) String() string {
	switch c {
	case CodeSuccess:
		return "GGE_SUCCESS"
	case CodeOutOfMemory:
		return "GGE_OUT_OF_MEMORY"
	case CodeInvalidParameter:
		return "GGE_INVALID_PARAMETER"
	case CodeInvalidState:
		return "GGE_INVALID_STATE"
	case CodeInternalFailure:
		return "GGE_INTERNAL_FAILURE"
	case CodeTerminate:
		return "GGE_TERMINATE"
	default:
		return "GGE_UNKNOWN"
	}
}

// RequestStatus is the per-request disposition reported alongside a response
// payload (gg_request_status in the C header).
type RequestStatus int32

// Request status values in header order.
const (
	RequestStatusSuccess RequestStatus = iota
	RequestStatusHandled
	RequestStatusUnhandled
	RequestStatusUnknown
	RequestStatusAgain
)

// String returns the native symbol name for diagnostics.
func (s RequestStatus) String() string {
	switch s {
	case RequestStatusSuccess:
		return "GG_REQUEST_SUCCESS"
	case RequestStatusHandled:
		return "GG_REQUEST_HANDLED"
	case RequestStatusUnhandled:
		return "GG_REQUEST_UNHANDLED"
	case RequestStatusUnknown:
		return "GG_REQUEST_UNKNOWN"
	case RequestStatusAgain:
		return "GG_REQUEST_AGAIN"
	default:
		return "GG_REQUEST_INVALID"
	}
}

// QueueFullPolicy controls publish behavior when the runtime's internal work
// queue is full (gg_queue_full_policy_options in the C header).
type QueueFullPolicy int32

const (
	// QueueFullBestEffort drops the message when the queue is full.
	QueueFullBestEffort QueueFullPolicy = iota
	// QueueFullAllOrError fails the publish when the queue is full.
	QueueFullAllOrError
)

// LogLevel is a native log severity (gg_log levels in the C header).
// Level zero is reserved by the header and never used.
type LogLevel int32

const (
	LogDebug LogLevel = iota + 1
	LogInfo
	LogWarn
	LogError
	LogFatal
)

// String returns the conventional lowercase level name.
func (l LogLevel) String() string {
	switch l {
	case LogDebug:
		return "debug"
	case LogInfo:
		return "info"
	case LogWarn:
		return "warn"
	case LogError:
		return "error"
	case LogFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Valid reports whether l is one of the levels the native header defines.
func (l LogLevel) Valid() bool {
	return l >= LogDebug && l <= LogFatal
}

// RuntimeOption selects how gg_runtime_start blocks (gg_runtime_opt in the
// C header).
type RuntimeOption int32

const (
	// RuntimeSync blocks the calling thread until the runtime terminates.
	// This is what on-demand lambda functions should use.
	RuntimeSync RuntimeOption = 0
	// RuntimeAsync returns immediately; the runtime stops when main exits.
	// Useful for long-lived (pinned) lambda functions.
	RuntimeAsync RuntimeOption = 1
)

// Limits the native SDK enforces on its inputs. Dispatch validates against
// these before any native call so invalid input never crosses the boundary.
const (
	// MaxTopicBytes is the longest topic the runtime accepts.
	MaxTopicBytes = 256

	// MaxThingNameBytes is the longest thing name the runtime accepts.
	MaxThingNameBytes = 128

	// MaxPayloadBytes is the largest message body the runtime accepts.
	MaxPayloadBytes = 128 << 10

	// ReadBufferSize is the chunk size used when draining a native output
	// buffer via gg_request_read / gg_lambda_handler_read.
	ReadBufferSize = 512
)
