//go:build greengrass_cgo

// Package native implements dispatch.Backend on top of the Greengrass C SDK
// through the ffi bindings. Every operation opens a native request handle,
// performs one blocking native call, drains the response buffer, and
// releases the handle on every exit path. Building this package requires the
// greengrass_cgo build tag and the native SDK library; without the tag a
// stub constructor reports the backend as unavailable.
package native

import (
	"context"
	"encoding/base64"

	"github.com/aws/aws-lambda-go/lambdacontext"
	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/dispatch"
	"github.com/gurre/greengrass-core/ffi"
	"github.com/gurre/greengrass-core/handle"
)

// Backend executes dispatch requests against the native runtime.
type Backend struct {
	logger *zap.Logger
}

// NewBackend initializes the native SDK and returns a backend bound to it.
func NewBackend(logger *zap.Logger) (dispatch.Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if code := ffi.GlobalInit(); code != ffi.CodeSuccess {
		return nil, dispatch.FromCode(code)
	}
	return &Backend{logger: logger}, nil
}

var _ dispatch.Backend = (*Backend)(nil)

// errorPayload is the JSON body the runtime attaches to failed requests.
type errorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// withRequest opens a request handle, runs the native call, drains its
// response, and guarantees the handle is released whether or not any step
// fails.
func (b *Backend) withRequest(fn func(req ffi.RequestHandle) (ffi.RequestStatus, ffi.Code)) (dispatch.Response, error) {
	raw, code := ffi.RequestInit()
	if err := dispatch.FromCode(code); err != nil {
		return dispatch.Response{}, err
	}
	h := handle.New("request", func() error {
		if c := ffi.RequestClose(raw); c != ffi.CodeSuccess {
			return dispatch.FromCode(c)
		}
		return nil
	}, b.logger)
	defer h.Close()

	status, code := fn(raw)
	if err := dispatch.FromCode(code); err != nil {
		return dispatch.Response{}, err
	}

	payload, code := ffi.RequestRead(raw)
	if err := dispatch.FromCode(code); err != nil {
		return dispatch.Response{}, err
	}

	if err := dispatch.FromStatus(status); err != nil {
		// A failed request often carries a more precise HTTP-style
		// status in its body; prefer that classification.
		var ep errorPayload
		if jerr := json.Unmarshal(payload, &ep); jerr == nil && ep.Code != 0 {
			if derr := dispatch.FromResponseCode(ep.Code); derr != nil {
				return dispatch.Response{}, derr
			}
		}
		return dispatch.Response{}, err
	}

	return dispatch.Response{Payload: payload, Status: status}, nil
}

// Publish sends the message to the runtime's pub/sub router.
func (b *Backend) Publish(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.Publish(r, req.Topic, req.Payload, req.QueuePolicy)
	})
}

// Invoke calls another lambda through the runtime, carrying the correlation
// ID in the client context the way AWS Lambda conventions expect.
func (b *Backend) Invoke(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	customerContext, err := encodeClientContext(req.CorrelationID)
	if err != nil {
		return dispatch.Response{}, dispatch.WrapError(dispatch.KindInternal, err, "failed to encode client context")
	}
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.Invoke(r, req.FunctionArn, customerContext, req.Payload)
	})
}

// GetShadow reads the thing's shadow document.
func (b *Backend) GetShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.GetThingShadow(r, req.ThingName)
	})
}

// UpdateShadow merges the patch into the thing's shadow document.
func (b *Backend) UpdateShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.UpdateThingShadow(r, req.ThingName, req.Payload)
	})
}

// DeleteShadow removes the thing's shadow document.
func (b *Backend) DeleteShadow(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.DeleteThingShadow(r, req.ThingName)
	})
}

// GetSecret reads a secret value from the runtime's local secrets manager.
func (b *Backend) GetSecret(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	return b.withRequest(func(r ffi.RequestHandle) (ffi.RequestStatus, ffi.Code) {
		return ffi.GetSecretValue(r, req.SecretID, req.SecretVersion, req.SecretStage)
	})
}

// Log writes one line to the runtime's log stream. Log does not open a
// request handle; gg_log is fire-and-forget.
func (b *Backend) Log(ctx context.Context, req dispatch.Request) (dispatch.Response, error) {
	if err := dispatch.FromCode(ffi.Log(req.Level, string(req.Payload))); err != nil {
		return dispatch.Response{}, err
	}
	return dispatch.Response{Status: ffi.RequestStatusSuccess}, nil
}

// Start installs the delegating handler and starts the native runtime. With
// ffi.RuntimeSync it blocks until the runtime terminates. Invocations are
// dispatched synchronously on the runtime-owned thread; the handler must
// return before the native call returns.
func Start(registry *dispatch.Registry, logger *zap.Logger, opt ffi.RuntimeOption) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	ffi.SetLambdaHandler(func(functionArn, clientContext string, payload []byte) ([]byte, error) {
		lc := &lambdacontext.LambdaContext{InvokedFunctionArn: functionArn}
		if cc, err := decodeClientContext(clientContext); err == nil {
			lc.ClientContext = cc
		} else {
			logger.Warn("invalid client context on invocation", zap.Error(err))
		}
		return registry.Dispatch(lambdacontext.NewContext(context.Background(), lc), dispatch.EventInvoke, payload)
	})

	if err := dispatch.FromCode(ffi.RuntimeStart(opt)); err != nil {
		return err
	}
	return nil
}

// encodeClientContext packs the correlation ID into a base64 JSON client
// context, or returns empty when there is nothing to carry.
func encodeClientContext(correlationID string) (string, error) {
	if correlationID == "" {
		return "", nil
	}
	cc := lambdacontext.ClientContext{
		Custom: map[string]string{"correlationId": correlationID},
	}
	data, err := json.Marshal(cc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// decodeClientContext parses the base64 JSON client context the runtime
// forwards with an invocation.
func decodeClientContext(raw string) (lambdacontext.ClientContext, error) {
	var cc lambdacontext.ClientContext
	if raw == "" {
		return cc, nil
	}
	data, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return cc, err
	}
	if err := json.Unmarshal(data, &cc); err != nil {
		return cc, err
	}
	return cc, nil
}
