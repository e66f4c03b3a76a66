//go:build !greengrass_cgo

// Package native implements dispatch.Backend on top of the Greengrass C SDK.
// This build does not include the native bindings; constructors report the
// backend as unavailable so that mock builds compile and run without the C
// library installed.
package native

import (
	"errors"

	"go.uber.org/zap"

	"github.com/gurre/greengrass-core/dispatch"
	"github.com/gurre/greengrass-core/ffi"
)

// ErrUnavailable is returned when the native backend is requested from a
// binary built without the greengrass_cgo build tag.
var ErrUnavailable = errors.New("native backend unavailable: build with -tags greengrass_cgo")

// NewBackend reports the native backend as unavailable.
func NewBackend(logger *zap.Logger) (dispatch.Backend, error) {
	return nil, ErrUnavailable
}

// Start reports the native runtime as unavailable.
func Start(registry *dispatch.Registry, logger *zap.Logger, opt ffi.RuntimeOption) error {
	return ErrUnavailable
}
