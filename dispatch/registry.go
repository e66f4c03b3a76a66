package dispatch

import (
	"context"
	"sync"

	"github.com/gurre/greengrass-core/metrics"
)

// Event identifies a kind of callback the runtime delivers into user code.
type Event int

const (
	// EventInvoke is a lambda invocation delivered by the runtime.
	EventInvoke Event = iota
	// EventShadowDelta is a shadow delta notification delivered when a
	// shadow document changes.
	EventShadowDelta
)

// String returns the event's name.
func (e Event) String() string {
	switch e {
	case EventInvoke:
		return "invoke"
	case EventShadowDelta:
		return "shadow_delta"
	default:
		return "unknown"
	}
}

// Handler processes a single event payload. Handlers run synchronously on
// the thread the runtime calls in on and must return before that call
// returns; work that must outlive the call belongs on a worker fed through a
// mailbox. The signature is compatible with aws-lambda-go's lambda.Handler,
// so handlers written for plain AWS Lambda satisfy it unchanged.
type Handler interface {
	Invoke(ctx context.Context, payload []byte) ([]byte, error)
}

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload []byte) ([]byte, error)

// Invoke calls f(ctx, payload).
func (f HandlerFunc) Invoke(ctx context.Context, payload []byte) ([]byte, error) {
	return f(ctx, payload)
}

// Registry maps event kinds to user handlers. It is process-wide state:
// handlers are registered once at startup and live until explicitly
// deregistered at teardown. At most one handler per event kind exists at a
// time; there is no mid-life swap.
type Registry struct {
	mu       sync.RWMutex
	handlers map[Event]Handler
	metrics  *metrics.Metrics
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[Event]Handler)}
}

// Register binds h to event. Registering a second handler for the same event
// before deregistering the first fails with KindAlreadyRegistered.
func (r *Registry) Register(event Event, h Handler) error {
	if h == nil {
		return Errorf(KindInvalidArgument, "nil handler for event %s", event)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.handlers[event]; ok {
		return Errorf(KindAlreadyRegistered, "handler already registered for event %s", event)
	}
	r.handlers[event] = h
	return nil
}

// SetMetrics attaches the counter set handler failures are recorded on. A nil
// metrics set disables recording.
func (r *Registry) SetMetrics(m *metrics.Metrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Deregister removes the handler for event, if any. Registering again after
// Deregister succeeds.
func (r *Registry) Deregister(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, event)
}

// Lookup returns the handler bound to event.
func (r *Registry) Lookup(event Event) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[event]
	return h, ok
}

// Dispatch invokes the handler bound to event on the calling goroutine and
// returns its result. When no handler is registered the event is reported as
// not found so the backend can reply accordingly. A handler failure bumps the
// handler-error counter before it propagates.
func (r *Registry) Dispatch(ctx context.Context, event Event, payload []byte) ([]byte, error) {
	h, ok := r.Lookup(event)
	if !ok {
		return nil, Errorf(KindNotFound, "no handler registered for event %s", event)
	}
	out, err := h.Invoke(ctx, payload)
	if err != nil {
		r.mu.RLock()
		m := r.metrics
		r.mu.RUnlock()
		if m != nil {
			m.RecordHandlerError()
		}
	}
	return out, err
}
