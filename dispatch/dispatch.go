package dispatch

import (
	"context"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/ffi"
	"github.com/gurre/greengrass-core/metrics"
)

// Backend is the capability interface both the native FFI layer and the
// in-process mock implement. Which one backs a Dispatcher is decided when
// the dispatcher is constructed, never per call, so call semantics are
// observably identical to test code.
type Backend interface {
	Publish(ctx context.Context, req Request) (Response, error)
	Invoke(ctx context.Context, req Request) (Response, error)
	GetShadow(ctx context.Context, req Request) (Response, error)
	UpdateShadow(ctx context.Context, req Request) (Response, error)
	DeleteShadow(ctx context.Context, req Request) (Response, error)
	Log(ctx context.Context, req Request) (Response, error)
	GetSecret(ctx context.Context, req Request) (Response, error)
}

// Dispatcher executes requests against a single backend. Each Execute call
// blocks the calling goroutine until the backend returns, matching the
// native SDK's thread-blocking semantics: there is no internal queueing, no
// reordering, and no retry. The native SDK exposes no cooperative
// cancellation, so once Execute is underway it runs to completion; timeout
// behavior belongs to the caller.
type Dispatcher struct {
	backend Backend
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewDispatcher creates a Dispatcher bound to backend. A nil logger disables
// dispatch logging.
func NewDispatcher(backend Backend, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		backend: backend,
		metrics: metrics.NewMetrics(),
		logger:  logger,
	}
}

// Metrics returns the dispatcher's activity counters.
func (d *Dispatcher) Metrics() *metrics.Metrics { return d.metrics }

// Execute validates req and runs it against the backend. Invalid input fails
// with KindInvalidArgument and never reaches the backend. Every failure is
// returned as a typed *Error; Execute never retries or recovers on the
// caller's behalf, preserving at-most-once native call semantics.
func (d *Dispatcher) Execute(ctx context.Context, req Request) (Response, error) {
	if err := validate(req); err != nil {
		d.metrics.RecordError()
		return Response{}, err
	}
	if req.CorrelationID == "" {
		req.CorrelationID = uuid.NewString()
	}

	start := time.Now()
	resp, err := d.call(ctx, req)
	d.metrics.RecordDispatchTime(time.Since(start))

	if err != nil {
		d.metrics.RecordError()
		derr := asDispatchError(err)
		d.logger.Debug("dispatch failed",
			zap.Stringer("op", req.Op),
			zap.Stringer("kind", derr.Kind),
			zap.String("correlation_id", req.CorrelationID),
			zap.Error(derr),
		)
		return Response{}, derr
	}

	d.record(req.Op)
	if resp.RequestID == "" {
		resp.RequestID = req.CorrelationID
	}
	return resp, nil
}

// call routes the request to the matching backend operation.
func (d *Dispatcher) call(ctx context.Context, req Request) (Response, error) {
	switch req.Op {
	case OpPublish:
		return d.backend.Publish(ctx, req)
	case OpInvoke:
		return d.backend.Invoke(ctx, req)
	case OpGetShadow:
		return d.backend.GetShadow(ctx, req)
	case OpUpdateShadow:
		return d.backend.UpdateShadow(ctx, req)
	case OpDeleteShadow:
		return d.backend.DeleteShadow(ctx, req)
	case OpLog:
		return d.backend.Log(ctx, req)
	case OpGetSecret:
		return d.backend.GetSecret(ctx, req)
	default:
		return Response{}, Errorf(KindInvalidArgument, "unknown operation %d", req.Op)
	}
}

// record bumps the per-operation success counter.
func (d *Dispatcher) record(op Operation) {
	switch op {
	case OpPublish:
		d.metrics.RecordPublish()
	case OpInvoke:
		d.metrics.RecordInvocation()
	case OpGetShadow:
		d.metrics.RecordShadowRead()
	case OpUpdateShadow, OpDeleteShadow:
		d.metrics.RecordShadowWrite()
	case OpLog:
		d.metrics.RecordLogWrite()
	case OpGetSecret:
		d.metrics.RecordSecretRead()
	}
}

// asDispatchError coerces backend failures into *Error. Anything that is not
// already a dispatch error escaped the backend contract and is surfaced as
// internal rather than swallowed.
func asDispatchError(err error) *Error {
	if derr, ok := err.(*Error); ok {
		return derr
	}
	return WrapError(KindInternal, err, "backend returned untyped error")
}

// validate enforces the native SDK's input constraints before any backend
// call.
func validate(req Request) error {
	switch req.Op {
	case OpPublish:
		if err := validateTopic(req.Topic); err != nil {
			return err
		}
		return validatePayload(req.Payload)
	case OpInvoke:
		if req.FunctionArn == "" {
			return NewError(KindInvalidArgument, "invoke requires a function ARN")
		}
		return validatePayload(req.Payload)
	case OpGetShadow, OpDeleteShadow:
		return validateThingName(req.ThingName)
	case OpUpdateShadow:
		if err := validateThingName(req.ThingName); err != nil {
			return err
		}
		if len(req.Payload) == 0 {
			return NewError(KindInvalidArgument, "shadow update requires a patch document")
		}
		if err := validatePayload(req.Payload); err != nil {
			return err
		}
		if !json.Valid(req.Payload) {
			return NewError(KindInvalidArgument, "shadow patch is not valid JSON")
		}
		return nil
	case OpLog:
		if !req.Level.Valid() {
			return Errorf(KindInvalidArgument, "unknown log level %d", req.Level)
		}
		if len(req.Payload) == 0 {
			return NewError(KindInvalidArgument, "log message must not be empty")
		}
		return nil
	case OpGetSecret:
		if req.SecretID == "" {
			return NewError(KindInvalidArgument, "secret id must not be empty")
		}
		return nil
	default:
		return Errorf(KindInvalidArgument, "unknown operation %d", req.Op)
	}
}

// validateTopic rejects topics the runtime would refuse: empty, oversized,
// publish-side wildcards, and embedded NUL.
func validateTopic(topic string) error {
	if topic == "" {
		return NewError(KindInvalidArgument, "topic must not be empty")
	}
	if len(topic) > ffi.MaxTopicBytes {
		return Errorf(KindInvalidArgument, "topic exceeds %d bytes", ffi.MaxTopicBytes)
	}
	if strings.ContainsAny(topic, "+#\x00") {
		return Errorf(KindInvalidArgument, "topic %q contains reserved characters", topic)
	}
	return nil
}

// validateThingName rejects thing names outside the runtime's limits.
func validateThingName(name string) error {
	if name == "" {
		return NewError(KindInvalidArgument, "thing name must not be empty")
	}
	if len(name) > ffi.MaxThingNameBytes {
		return Errorf(KindInvalidArgument, "thing name exceeds %d bytes", ffi.MaxThingNameBytes)
	}
	return nil
}

// validatePayload rejects bodies larger than the runtime accepts.
func validatePayload(payload []byte) error {
	if len(payload) > ffi.MaxPayloadBytes {
		return Errorf(KindInvalidArgument, "payload exceeds %d bytes", ffi.MaxPayloadBytes)
	}
	return nil
}
