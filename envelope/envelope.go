// Package envelope implements the JSON message envelope exchanged with the
// Greengrass runtime. The envelope carries an opaque binary payload
// (base64-encoded on the wire) plus routing metadata, and must round-trip
// byte-for-byte through Encode and Decode.
package envelope

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// ErrMalformed is returned when bytes cannot be parsed as a valid envelope.
// Codec failures are never partially recovered: the whole operation fails
// and the dispatcher surfaces them as internal errors.
var ErrMalformed = fmt.Errorf("malformed envelope")

// Envelope is the wire representation of a message payload. Exactly one of
// Topic or ThingName is normally set, depending on whether the message is
// pub/sub data or a shadow document.
type Envelope struct {
	Topic         string `json:"topic,omitempty"`         // Pub/sub channel the message belongs to
	ThingName     string `json:"thingName,omitempty"`     // Shadow owner, for shadow operations
	CorrelationID string `json:"correlationId,omitempty"` // Optional caller-supplied correlation identifier
	Payload       []byte `json:"payload"`                 // Opaque message body, base64 in JSON
}

// Encode marshals the envelope to its JSON wire form. The payload is
// base64-encoded by the codec; no text re-encoding is applied to the bytes.
func Encode(e Envelope) ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return data, nil
}

// Decode parses JSON wire bytes back into an Envelope. Unknown fields and
// trailing content are rejected so that a corrupted frame never half-parses.
func Decode(data []byte) (Envelope, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var e Envelope
	if err := dec.Decode(&e); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if dec.More() {
		return Envelope{}, fmt.Errorf("%w: trailing content", ErrMalformed)
	}
	return e, nil
}
