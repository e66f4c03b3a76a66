// Package mock implements an in-process substitute for the native Greengrass
// SDK. It reproduces the native backend's observable behavior for every
// dispatch operation against process-local state, so user lambda code and
// dispatch logic can be exercised deterministically without the native
// library present.
package mock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/aws/aws-lambda-go/lambdacontext"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/dispatch"
	"github.com/gurre/greengrass-core/ffi"
	"github.com/gurre/greengrass-core/handle"
	"github.com/gurre/greengrass-core/shadow"
)

// Subscriber receives messages published to a subscribed topic.
type Subscriber func(topic string, payload []byte)

// LogLine is one entry recorded by the Log operation.
type LogLine struct {
	Level   ffi.LogLevel
	Message string
}

// Backend implements dispatch.Backend in memory. Messages publish to an
// in-memory per-topic log and deliver synchronously to subscribers in
// publish order; shadows live in a shadow.Store; invocations call the
// registered handler directly on the calling goroutine.
type Backend struct {
	registry    *dispatch.Registry
	store       shadow.Store
	logger      *zap.Logger
	functionArn string

	mu          sync.Mutex
	topics      map[string][][]byte
	subscribers map[string][]Subscriber
	injected    map[dispatch.Operation]*dispatch.Error
	logLines    []LogLine
	secrets     map[string][]byte

	handleOpens    int64
	handleReleases int64
}

// Option customizes a Backend.
type Option func(*Backend)

// WithStore replaces the default in-memory shadow store, e.g. with a
// shadow.FileStore for persistence across restarts.
func WithStore(s shadow.Store) Option {
	return func(b *Backend) { b.store = s }
}

// WithLogger sets the logger used for delivery diagnostics and forwarded
// log lines.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) { b.logger = l }
}

// WithFunctionArn sets the function ARN stamped into invocation contexts.
func WithFunctionArn(arn string) Option {
	return func(b *Backend) { b.functionArn = arn }
}

// NewBackend creates a mock backend that invokes handlers from registry.
func NewBackend(registry *dispatch.Registry, opts ...Option) *Backend {
	b := &Backend{
		registry:    registry,
		store:       shadow.NewMemoryStore(),
		logger:      zap.NewNop(),
		functionArn: "arn:aws:lambda:local:000000000000:function:mock",
		topics:      make(map[string][][]byte),
		subscribers: make(map[string][]Subscriber),
		injected:    make(map[dispatch.Operation]*dispatch.Error),
		secrets:     make(map[string][]byte),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Compile-time check that the mock satisfies the dispatch contract.
var _ dispatch.Backend = (*Backend)(nil)

// Subscribe registers fn for messages published to topic. Test-side only;
// the native runtime owns real subscriptions.
func (b *Backend) Subscribe(topic string, fn Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[topic] = append(b.subscribers[topic], fn)
}

// Messages returns copies of everything published to topic, in publish
// order.
func (b *Backend) Messages(topic string) [][]byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	msgs := make([][]byte, len(b.topics[topic]))
	for i, m := range b.topics[topic] {
		msgs[i] = append([]byte(nil), m...)
	}
	return msgs
}

// LogLines returns everything recorded by the Log operation.
func (b *Backend) LogLines() []LogLine {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]LogLine(nil), b.logLines...)
}

// SetSecret seeds the value GetSecret returns for the given secret name or
// ARN. Test-side only; the native runtime owns real secrets.
func (b *Backend) SetSecret(secretID string, value []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.secrets[secretID] = append([]byte(nil), value...)
}

// FailNext forces the next call of the given operation to return err before
// any state changes. The injection is consumed by that call.
func (b *Backend) FailNext(op dispatch.Operation, err *dispatch.Error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.injected[op] = err
}

// OpenHandles reports handles acquired but not yet released. Zero means no
// leak.
func (b *Backend) OpenHandles() int64 {
	return atomic.LoadInt64(&b.handleOpens) - atomic.LoadInt64(&b.handleReleases)
}

// HandleReleases reports how many handle releases have run.
func (b *Backend) HandleReleases() int64 {
	return atomic.LoadInt64(&b.handleReleases)
}

// acquire opens a request handle the way the native backend would, so leak
// behavior is observable on the mock path too.
func (b *Backend) acquire() *handle.Handle {
	atomic.AddInt64(&b.handleOpens, 1)
	return handle.New("request", func() error {
		atomic.AddInt64(&b.handleReleases, 1)
		return nil
	}, b.logger)
}

// takeInjected consumes a pending injected failure for op.
func (b *Backend) takeInjected(op dispatch.Operation) *dispatch.Error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.injected[op]; ok {
		delete(b.injected, op)
		return err
	}
	return nil
}

// Publish records the message against the topic and delivers it
// synchronously to every subscriber, preserving per-topic publish order for
// a single producer.
func (b *Backend) Publish(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpPublish); err != nil {
		return dispatch.Response{}, err
	}

	payload := append([]byte(nil), req.Payload...)
	b.mu.Lock()
	b.topics[req.Topic] = append(b.topics[req.Topic], payload)
	subs := append([]Subscriber(nil), b.subscribers[req.Topic]...)
	b.mu.Unlock()

	for _, fn := range subs {
		fn(req.Topic, payload)
	}
	return dispatch.Response{Status: ffi.RequestStatusSuccess}, nil
}

// Invoke calls the registered invoke handler with the given payload on the
// calling goroutine, returning its result as the response. Invocation
// metadata travels on the context the way aws-lambda-go delivers it.
func (b *Backend) Invoke(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpInvoke); err != nil {
		return dispatch.Response{}, err
	}

	lc := &lambdacontext.LambdaContext{
		AwsRequestID:       req.CorrelationID,
		InvokedFunctionArn: b.functionArn,
	}
	out, err := b.registry.Dispatch(lambdacontext.NewContext(ctx, lc), dispatch.EventInvoke, req.Payload)
	if err != nil {
		if derr, ok := err.(*dispatch.Error); ok {
			return dispatch.Response{}, derr
		}
		return dispatch.Response{}, dispatch.WrapError(dispatch.KindPermanent, err, "handler failed")
	}
	return dispatch.Response{Payload: out, Status: ffi.RequestStatusSuccess}, nil
}

// GetShadow returns the shadow document for the requested thing name.
func (b *Backend) GetShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpGetShadow); err != nil {
		return dispatch.Response{}, err
	}

	doc, err := b.store.Get(ctx, req.ThingName)
	if err != nil {
		return dispatch.Response{}, shadowError(req.ThingName, err)
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return dispatch.Response{}, dispatch.WrapError(dispatch.KindInternal, err, "failed to encode shadow document")
	}
	return dispatch.Response{Payload: data, Status: ffi.RequestStatusSuccess}, nil
}

// UpdateShadow merges the patch into the thing's shadow document, notifies a
// registered shadow-delta handler with the applied patch, and returns the
// merged document.
func (b *Backend) UpdateShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpUpdateShadow); err != nil {
		return dispatch.Response{}, err
	}

	var patch shadow.Document
	if err := json.Unmarshal(req.Payload, &patch); err != nil {
		return dispatch.Response{}, dispatch.WrapError(dispatch.KindInvalidArgument, err, "shadow patch must be a JSON object")
	}

	merged, err := b.store.Update(ctx, req.ThingName, patch)
	if err != nil {
		return dispatch.Response{}, shadowError(req.ThingName, err)
	}

	// Delta notification happens after the update is committed; a handler
	// failure does not undo the write.
	if _, ok := b.registry.Lookup(dispatch.EventShadowDelta); ok {
		if _, err := b.registry.Dispatch(ctx, dispatch.EventShadowDelta, req.Payload); err != nil {
			b.logger.Warn("shadow delta handler failed",
				zap.String("thing", req.ThingName),
				zap.Error(err),
			)
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return dispatch.Response{}, dispatch.WrapError(dispatch.KindInternal, err, "failed to encode shadow document")
	}
	return dispatch.Response{Payload: data, Status: ffi.RequestStatusSuccess}, nil
}

// DeleteShadow removes the thing's shadow document.
func (b *Backend) DeleteShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpDeleteShadow); err != nil {
		return dispatch.Response{}, err
	}

	if err := b.store.Delete(ctx, req.ThingName); err != nil {
		return dispatch.Response{}, shadowError(req.ThingName, err)
	}
	return dispatch.Response{Status: ffi.RequestStatusSuccess}, nil
}

// Log records the line in memory and forwards it to the configured logger at
// the matching level.
func (b *Backend) Log(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpLog); err != nil {
		return dispatch.Response{}, err
	}

	msg := string(req.Payload)
	b.mu.Lock()
	b.logLines = append(b.logLines, LogLine{Level: req.Level, Message: msg})
	b.mu.Unlock()

	switch req.Level {
	case ffi.LogDebug:
		b.logger.Debug(msg)
	case ffi.LogInfo:
		b.logger.Info(msg)
	case ffi.LogWarn:
		b.logger.Warn(msg)
	case ffi.LogError, ffi.LogFatal:
		b.logger.Error(msg)
	}
	return dispatch.Response{Status: ffi.RequestStatusSuccess}, nil
}

// GetSecret returns the seeded value for the requested secret. Version and
// stage selectors are accepted but ignored; the mock keeps one value per
// secret.
func (b *Backend) GetSecret(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	h := b.acquire()
	defer h.Close()

	if err := b.takeInjected(dispatch.OpGetSecret); err != nil {
		return dispatch.Response{}, err
	}

	b.mu.Lock()
	value, ok := b.secrets[req.SecretID]
	b.mu.Unlock()
	if !ok {
		return dispatch.Response{}, dispatch.Errorf(dispatch.KindNotFound, "no secret value for %q", req.SecretID)
	}
	return dispatch.Response{Payload: append([]byte(nil), value...), Status: ffi.RequestStatusSuccess}, nil
}

// shadowError maps store failures onto the dispatch taxonomy.
func shadowError(thing string, err error) *dispatch.Error {
	if err == shadow.ErrNotFound {
		return dispatch.Errorf(dispatch.KindNotFound, "no shadow document for thing %q", thing)
	}
	return dispatch.WrapError(dispatch.KindInternal, err, "shadow store failure")
}
