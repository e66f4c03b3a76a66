package dispatch

import "github.com/gurre/greengrass-core/ffi"

// Operation identifies which native SDK primitive a Request targets.
type Operation int

const (
	OpPublish      Operation = iota // Publish a message to a pub/sub topic
	OpInvoke                        // Invoke the registered lambda handler
	OpGetShadow                     // Read a thing's shadow document
	OpUpdateShadow                  // Merge a patch into a thing's shadow document
	OpDeleteShadow                  // Remove a thing's shadow document
	OpLog                           // Write a line to the runtime's log stream
	OpGetSecret                     // Read a secret value from the local secrets manager
)

// String returns the operation's name.
func (op Operation) String() string {
	switch op {
	case OpPublish:
		return "publish"
	case OpInvoke:
		return "invoke"
	case OpGetShadow:
		return "get_shadow"
	case OpUpdateShadow:
		return "update_shadow"
	case OpDeleteShadow:
		return "delete_shadow"
	case OpLog:
		return "log"
	case OpGetSecret:
		return "get_secret"
	default:
		return "unknown"
	}
}

// Request is a single dispatch operation. It is created per call, consumed
// exactly once, and never persisted. The payload is borrowed from the caller
// for the duration of the call only.
type Request struct {
	Op            Operation           // Which primitive to execute
	Topic         string              // Pub/sub topic (publish)
	ThingName     string              // Shadow owner (shadow operations)
	FunctionArn   string              // Target function (invoke)
	SecretID      string              // Secret name or ARN (get secret)
	SecretVersion string              // Optional secret version ID (get secret)
	SecretStage   string              // Optional staging label, e.g. AWSCURRENT (get secret)
	Payload       []byte              // Opaque message body
	Level         ffi.LogLevel        // Log severity (log)
	QueuePolicy   ffi.QueueFullPolicy // Behavior when the runtime queue is full (publish)
	CorrelationID string              // Optional; assigned by the dispatcher when empty
}

// Response is the backend's reply to exactly one Request.
type Response struct {
	Payload   []byte            // Response body, if the operation produces one
	Status    ffi.RequestStatus // Native request disposition
	RequestID string            // Correlation ID the request carried
}
