//go:build greengrass_cgo

package ffi

/*
#include <stdlib.h>
#include "greengrasssdk.h"
*/
import "C"

import (
	"sync"
	"unsafe"
)

// LambdaHandler is the Go entry point the native runtime re-enters when a
// lambda invocation arrives. It runs synchronously on the thread the runtime
// calls in on and must return before the native call returns. The returned
// bytes are written back as the invocation response; a returned error is
// written back as the invocation error.
type LambdaHandler func(functionArn, clientContext string, payload []byte) ([]byte, error)

var (
	handlerMu sync.RWMutex
	handlerFn LambdaHandler
)

// SetLambdaHandler installs the delegating handler goLambdaHandler forwards
// to. Passing nil restores no-op behavior.
func SetLambdaHandler(fn LambdaHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handlerFn = fn
}

// readHandlerMessage drains the invocation payload the runtime staged for
// gg_lambda_handler_read.
func readHandlerMessage() ([]byte, Code) {
	var collected []byte
	buffer := make([]byte, ReadBufferSize)
	for {
		var read C.size_t
		code := Code(C.gg_lambda_handler_read(
			unsafe.Pointer(&buffer[0]), C.size_t(len(buffer)), &read))
		if code != CodeSuccess {
			return nil, code
		}
		if read == 0 {
			return collected, CodeSuccess
		}
		collected = append(collected, buffer[:read]...)
	}
}

// writeHandlerError reports a failed invocation back to the runtime.
func writeHandlerError(message string) {
	cmsg := C.CString(message)
	defer C.free(unsafe.Pointer(cmsg))
	C.gg_lambda_handler_write_error(cmsg)
}

//export goLambdaHandler
func goLambdaHandler(cctx *C.gg_lambda_context) {
	handlerMu.RLock()
	fn := handlerFn
	handlerMu.RUnlock()
	if fn == nil {
		return
	}

	payload, code := readHandlerMessage()
	if code != CodeSuccess {
		writeHandlerError("failed to read invocation payload: " + code.String())
		return
	}

	functionArn := C.GoString(cctx.function_arn)
	clientContext := C.GoString(cctx.client_context)

	out, err := fn(functionArn, clientContext, payload)
	if err != nil {
		writeHandlerError(err.Error())
		return
	}
	if len(out) == 0 {
		return
	}
	C.gg_lambda_handler_write_response(unsafe.Pointer(&out[0]), C.size_t(len(out)))
}
