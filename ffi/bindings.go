//go:build greengrass_cgo

package ffi

/*
#cgo LDFLAGS: -laws-greengrass-core-sdk-c
#include <stdlib.h>
#include "greengrasssdk.h"

extern void goLambdaHandler(const gg_lambda_context *cxt);

// gg_log is variadic, which cgo cannot call directly.
static gg_error go_gg_log(gg_log_level level, const char *message) {
	return gg_log(level, "%s", message);
}

static gg_error go_gg_runtime_start(gg_runtime_opt opt) {
	return gg_runtime_start((gg_lambda_handler)goLambdaHandler, opt);
}

static gg_error go_gg_publish(gg_request req, const char *topic,
		const void *payload, size_t payload_size,
		gg_queue_full_policy_options policy, gg_request_result *result) {
	gg_publish_options opts = NULL;
	gg_error err = gg_publish_options_init(&opts);
	if (err != GGE_SUCCESS) {
		return err;
	}
	err = gg_publish_options_set_queue_full_policy(opts, policy);
	if (err == GGE_SUCCESS) {
		err = gg_publish_with_options(req, topic, payload, payload_size, opts, result);
	}
	gg_publish_options_free(opts);
	return err;
}

static gg_error go_gg_invoke(gg_request req, const char *function_arn,
		const char *customer_context, const void *payload,
		size_t payload_size, gg_request_result *result) {
	gg_invoke_options opts;
	opts.function_arn = function_arn;
	opts.customer_context = customer_context;
	opts.qualifier = NULL;
	opts.payload = payload;
	opts.payload_size = payload_size;
	return gg_invoke(req, &opts, result);
}
*/
import "C"

import "unsafe"

// RequestHandle is an opaque native request handle (gg_request). It is only
// meaningful to the functions in this file and must be closed with
// RequestClose exactly once.
type RequestHandle struct {
	raw C.gg_request
}

// GlobalInit initializes the native SDK. Must be called once before any
// other native call.
func GlobalInit() Code {
	return Code(C.gg_global_init(0))
}

// RuntimeStart registers the delegating lambda handler and starts the native
// runtime. With RuntimeSync this blocks the calling thread until the runtime
// terminates.
func RuntimeStart(opt RuntimeOption) Code {
	return Code(C.go_gg_runtime_start(C.gg_runtime_opt(opt)))
}

// RequestInit opens a native request handle.
func RequestInit() (RequestHandle, Code) {
	var req C.gg_request
	code := Code(C.gg_request_init(&req))
	return RequestHandle{raw: req}, code
}

// RequestClose releases a native request handle.
func RequestClose(req RequestHandle) Code {
	return Code(C.gg_request_close(req.raw))
}

// RequestRead drains the response buffer attached to req.
func RequestRead(req RequestHandle) ([]byte, Code) {
	var collected []byte
	buffer := make([]byte, ReadBufferSize)
	for {
		var read C.size_t
		code := Code(C.gg_request_read(req.raw,
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

// Publish sends payload to topic with the given queue-full policy.
func Publish(req RequestHandle, topic string, payload []byte, policy QueueFullPolicy) (RequestStatus, Code) {
	ctopic := C.CString(topic)
	defer C.free(unsafe.Pointer(ctopic))

	var result C.gg_request_result
	code := Code(C.go_gg_publish(req.raw, ctopic,
		payloadPtr(payload), C.size_t(len(payload)),
		C.gg_queue_full_policy_options(policy), &result))
	return RequestStatus(result.request_status), code
}

// Invoke calls another lambda function through the runtime. customerContext
// is the base64-encoded client context, or empty.
func Invoke(req RequestHandle, functionArn, customerContext string, payload []byte) (RequestStatus, Code) {
	carn := C.CString(functionArn)
	defer C.free(unsafe.Pointer(carn))

	var cctx *C.char
	if customerContext != "" {
		cctx = C.CString(customerContext)
		defer C.free(unsafe.Pointer(cctx))
	}

	var result C.gg_request_result
	code := Code(C.go_gg_invoke(req.raw, carn, cctx,
		payloadPtr(payload), C.size_t(len(payload)), &result))
	return RequestStatus(result.request_status), code
}

// GetThingShadow requests the shadow document for thingName; the response
// body is read with RequestRead.
func GetThingShadow(req RequestHandle, thingName string) (RequestStatus, Code) {
	cthing := C.CString(thingName)
	defer C.free(unsafe.Pointer(cthing))

	var result C.gg_request_result
	code := Code(C.gg_get_thing_shadow(req.raw, cthing, &result))
	return RequestStatus(result.request_status), code
}

// UpdateThingShadow merges the JSON patch into thingName's shadow document.
func UpdateThingShadow(req RequestHandle, thingName string, patch []byte) (RequestStatus, Code) {
	cthing := C.CString(thingName)
	defer C.free(unsafe.Pointer(cthing))
	cpatch := C.CString(string(patch))
	defer C.free(unsafe.Pointer(cpatch))

	var result C.gg_request_result
	code := Code(C.gg_update_thing_shadow(req.raw, cthing, cpatch, &result))
	return RequestStatus(result.request_status), code
}

// DeleteThingShadow removes thingName's shadow document.
func DeleteThingShadow(req RequestHandle, thingName string) (RequestStatus, Code) {
	cthing := C.CString(thingName)
	defer C.free(unsafe.Pointer(cthing))

	var result C.gg_request_result
	code := Code(C.gg_delete_thing_shadow(req.raw, cthing, &result))
	return RequestStatus(result.request_status), code
}

// GetSecretValue requests a secret value from the local secrets manager,
// optionally pinned to a version ID or staging label; the response body is
// read with RequestRead.
func GetSecretValue(req RequestHandle, secretID, versionID, versionStage string) (RequestStatus, Code) {
	csecret := C.CString(secretID)
	defer C.free(unsafe.Pointer(csecret))

	var cversion, cstage *C.char
	if versionID != "" {
		cversion = C.CString(versionID)
		defer C.free(unsafe.Pointer(cversion))
	}
	if versionStage != "" {
		cstage = C.CString(versionStage)
		defer C.free(unsafe.Pointer(cstage))
	}

	var result C.gg_request_result
	code := Code(C.gg_get_secret_value(req.raw, csecret, cversion, cstage, &result))
	return RequestStatus(result.request_status), code
}

// Log writes one line to the runtime's log stream.
func Log(level LogLevel, message string) Code {
	cmsg := C.CString(message)
	defer C.free(unsafe.Pointer(cmsg))
	return Code(C.go_gg_log(C.gg_log_level(level), cmsg))
}

// payloadPtr returns the start of payload for the C call, passing NULL for
// empty bodies the way the native SDK expects.
func payloadPtr(payload []byte) unsafe.Pointer {
	if len(payload) == 0 {
		return nil
	}
	return unsafe.Pointer(&payload[0])
}
