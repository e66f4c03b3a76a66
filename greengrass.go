// Package greengrass is a Go SDK for lambda functions running inside a
// Greengrass-style edge runtime. It bridges the runtime's blocking,
// thread-per-call C SDK into typed, testable operations: publish to pub/sub
// topics, invoke and be invoked as a lambda, read and update thing shadows,
// read secret values, and write runtime logs.
//
// Which backend executes calls is decided when the client is constructed:
// the in-process mock (always available, used by all tests) or the native C
// SDK (requires building with -tags greengrass_cgo). Call semantics are
// identical on both paths.
//
// Example:
//
//	cfg := config.Default()
//	client, err := greengrass.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	err = client.RegisterHandler(greengrass.EventInvoke,
//	    greengrass.HandlerFunc(func(ctx context.Context, payload []byte) ([]byte, error) {
//	        return payload, nil
//	    }))
package greengrass

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/config"
	"github.com/gurre/greengrass-core/dispatch"
	"github.com/gurre/greengrass-core/envelope"
	"github.com/gurre/greengrass-core/ffi"
	"github.com/gurre/greengrass-core/metrics"
	"github.com/gurre/greengrass-core/mock"
	"github.com/gurre/greengrass-core/native"
	"github.com/gurre/greengrass-core/shadow"
)

// Handler processes an event payload. See dispatch.Handler for the threading
// contract. aws-lambda-go handlers satisfy it unchanged.
type Handler = dispatch.Handler

// HandlerFunc adapts an ordinary function to the Handler interface.
type HandlerFunc = dispatch.HandlerFunc

// Event kinds a handler can be registered for.
const (
	EventInvoke      = dispatch.EventInvoke
	EventShadowDelta = dispatch.EventShadowDelta
)

// Log levels accepted by Client.Log.
const (
	LogDebug = ffi.LogDebug
	LogInfo  = ffi.LogInfo
	LogWarn  = ffi.LogWarn
	LogError = ffi.LogError
	LogFatal = ffi.LogFatal
)

// NewHandler builds a Handler from any function signature aws-lambda-go
// accepts, e.g. func(ctx context.Context, event MyEvent) (MyResponse, error).
// Invalid signatures surface as an error on invocation, matching
// lambda.NewHandler behavior.
func NewHandler(fn any) Handler {
	return lambda.NewHandler(fn)
}

// Client is the public SDK surface. Each method is a thin, non-branching
// call into the dispatch layer; all methods are safe for concurrent use.
type Client struct {
	cfg        config.Config
	dispatcher *dispatch.Dispatcher
	registry   *dispatch.Registry
	mock       *mock.Backend
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithLogger sets the logger used across the dispatch layer, handle
// teardown, and the mock backend.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// New creates a Client executing against the backend cfg selects.
func New(cfg config.Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	c := &Client{
		cfg:      cfg,
		registry: dispatch.NewRegistry(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	var backend dispatch.Backend
	switch cfg.Backend {
	case config.BackendMock:
		store, err := shadowStore(cfg)
		if err != nil {
			return nil, err
		}
		mockOpts := []mock.Option{
			mock.WithStore(store),
			mock.WithLogger(c.logger),
		}
		if cfg.FunctionArn != "" {
			mockOpts = append(mockOpts, mock.WithFunctionArn(cfg.FunctionArn))
		}
		c.mock = mock.NewBackend(c.registry, mockOpts...)
		backend = c.mock
	case config.BackendNative:
		nb, err := native.NewBackend(c.logger)
		if err != nil {
			return nil, err
		}
		backend = nb
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	c.dispatcher = dispatch.NewDispatcher(backend, c.logger)
	c.registry.SetMetrics(c.dispatcher.Metrics())
	return c, nil
}

// shadowStore builds the shadow store the mock backend uses.
func shadowStore(cfg config.Config) (shadow.Store, error) {
	if cfg.ShadowStoreURI == "" {
		return shadow.NewMemoryStore(), nil
	}
	store, err := shadow.NewFileStore(cfg.ShadowStoreURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open shadow store: %w", err)
	}
	return store, nil
}

// PublishOption customizes a single publish call.
type PublishOption func(*dispatch.Request)

// WithQueueFullPolicy overrides the behavior when the runtime queue is full.
// The default drops the message best-effort.
func WithQueueFullPolicy(policy ffi.QueueFullPolicy) PublishOption {
	return func(req *dispatch.Request) { req.QueuePolicy = policy }
}

// WithCorrelationID attaches a caller-chosen correlation identifier instead
// of a generated one.
func WithCorrelationID(id string) PublishOption {
	return func(req *dispatch.Request) { req.CorrelationID = id }
}

// Publish sends payload to topic. The call blocks until the backend accepts
// or rejects the message.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, opts ...PublishOption) error {
	req := dispatch.Request{
		Op:      dispatch.OpPublish,
		Topic:   topic,
		Payload: payload,
	}
	for _, opt := range opts {
		opt(&req)
	}
	_, err := c.dispatcher.Execute(ctx, req)
	return err
}

// PublishEnvelope encodes env and publishes it to its topic.
func (c *Client) PublishEnvelope(ctx context.Context, env envelope.Envelope, opts ...PublishOption) error {
	data, err := envelope.Encode(env)
	if err != nil {
		return dispatch.WrapError(dispatch.KindInternal, err, "failed to encode envelope")
	}
	publishOpts := opts
	if env.CorrelationID != "" {
		publishOpts = append([]PublishOption{WithCorrelationID(env.CorrelationID)}, opts...)
	}
	return c.Publish(ctx, env.Topic, data, publishOpts...)
}

// Invoke calls another lambda function through the runtime and returns its
// response payload.
func (c *Client) Invoke(ctx context.Context, functionArn string, payload []byte) ([]byte, error) {
	resp, err := c.dispatcher.Execute(ctx, dispatch.Request{
		Op:          dispatch.OpInvoke,
		FunctionArn: functionArn,
		Payload:     payload,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// RegisterHandler binds h to an event kind. Registering a second handler for
// the same kind before DeregisterHandler fails with KindAlreadyRegistered.
func (c *Client) RegisterHandler(event dispatch.Event, h Handler) error {
	return c.registry.Register(event, h)
}

// DeregisterHandler removes the handler for an event kind. Intended for
// process teardown; there is no mid-life handler swap.
func (c *Client) DeregisterHandler(event dispatch.Event) {
	c.registry.Deregister(event)
}

// GetShadow returns the shadow document for thing as JSON.
func (c *Client) GetShadow(ctx context.Context, thing string) ([]byte, error) {
	resp, err := c.dispatcher.Execute(ctx, dispatch.Request{
		Op:        dispatch.OpGetShadow,
		ThingName: thing,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// UpdateShadow merges the JSON patch into thing's shadow document and
// returns the merged document. Keys present in the patch replace existing
// ones recursively; keys absent from the patch are kept.
func (c *Client) UpdateShadow(ctx context.Context, thing string, patch []byte) ([]byte, error) {
	resp, err := c.dispatcher.Execute(ctx, dispatch.Request{
		Op:        dispatch.OpUpdateShadow,
		ThingName: thing,
		Payload:   patch,
	})
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// DeleteShadow removes thing's shadow document.
func (c *Client) DeleteShadow(ctx context.Context, thing string) error {
	_, err := c.dispatcher.Execute(ctx, dispatch.Request{
		Op:        dispatch.OpDeleteShadow,
		ThingName: thing,
	})
	return err
}

// SecretOption customizes a single GetSecret call.
type SecretOption func(*dispatch.Request)

// WithSecretVersion pins the read to a specific secret version ID.
func WithSecretVersion(versionID string) SecretOption {
	return func(req *dispatch.Request) { req.SecretVersion = versionID }
}

// WithSecretStage pins the read to a staging label such as AWSCURRENT.
func WithSecretStage(stage string) SecretOption {
	return func(req *dispatch.Request) { req.SecretStage = stage }
}

// GetSecret returns the value of a secret from the runtime's local secrets
// manager. By default the current version is returned; use WithSecretVersion
// or WithSecretStage to pin a specific one.
func (c *Client) GetSecret(ctx context.Context, secretID string, opts ...SecretOption) ([]byte, error) {
	req := dispatch.Request{
		Op:       dispatch.OpGetSecret,
		SecretID: secretID,
	}
	for _, opt := range opts {
		opt(&req)
	}
	resp, err := c.dispatcher.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	return resp.Payload, nil
}

// Log writes one line to the runtime's log stream.
func (c *Client) Log(ctx context.Context, level ffi.LogLevel, message string) error {
	_, err := c.dispatcher.Execute(ctx, dispatch.Request{
		Op:      dispatch.OpLog,
		Level:   level,
		Payload: []byte(message),
	})
	return err
}

// Execute runs a raw dispatch request. Most callers want the typed methods;
// Execute exists for callers composing their own request values.
func (c *Client) Execute(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return c.dispatcher.Execute(ctx, req)
}

// Start enters the runtime loop. On the native backend this registers the
// delegating handler and blocks per the configured runtime mode; on the mock
// backend it returns immediately since tests drive invocations directly.
func (c *Client) Start() error {
	if c.cfg.Backend == config.BackendMock {
		return nil
	}
	opt := ffi.RuntimeSync
	if c.cfg.RuntimeMode == config.RuntimeModeAsync {
		opt = ffi.RuntimeAsync
	}
	return native.Start(c.registry, c.logger, opt)
}

// Metrics returns a snapshot of dispatch activity.
func (c *Client) Metrics() metrics.Report {
	return c.dispatcher.Metrics().GenerateReport()
}

// Mock returns the in-process backend for test instrumentation
// (subscriptions, error injection, handle accounting), or nil when the
// client runs against the native backend.
func (c *Client) Mock() *mock.Backend { return c.mock }
