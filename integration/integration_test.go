// Package integration exercises the full SDK path over the mock backend:
// client construction from configuration, handler registration, publish and
// subscribe ordering, shadow merge, error injection, and handle accounting.
package integration

import (
	"bytes"
	"context"
	"testing"

	json "github.com/goccy/go-json"

	greengrass "github.com/gurre/greengrass-core"
	"github.com/gurre/greengrass-core/config"
	"github.com/gurre/greengrass-core/dispatch"
	"github.com/gurre/greengrass-core/envelope"
)

func TestFullDeviceScenario(t *testing.T) {
	cfg := config.Default()
	cfg.FunctionArn = "arn:aws:lambda:local:000000000000:function:thermostat"
	client, err := greengrass.New(cfg)
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	ctx := context.Background()

	// A thermostat lambda: invocations return the current set point, shadow
	// deltas record the desired one.
	var deltas [][]byte
	if err := client.RegisterHandler(greengrass.EventInvoke, greengrass.HandlerFunc(
		func(ctx context.Context, payload []byte) ([]byte, error) {
			return []byte(`{"setPoint":21}`), nil
		})); err != nil {
		t.Fatalf("failed to register invoke handler: %v", err)
	}
	if err := client.RegisterHandler(greengrass.EventShadowDelta, greengrass.HandlerFunc(
		func(ctx context.Context, payload []byte) ([]byte, error) {
			deltas = append(deltas, append([]byte(nil), payload...))
			return nil, nil
		})); err != nil {
		t.Fatalf("failed to register delta handler: %v", err)
	}

	// Telemetry fan-out: ordered delivery to a subscriber.
	var received [][]byte
	client.Mock().Subscribe("thermostat/telemetry", func(topic string, payload []byte) {
		received = append(received, payload)
	})
	for _, reading := range []string{`{"temp":20.5}`, `{"temp":20.7}`, `{"temp":21.0}`} {
		env := envelope.Envelope{Topic: "thermostat/telemetry", Payload: []byte(reading)}
		if err := client.PublishEnvelope(ctx, env); err != nil {
			t.Fatalf("publish %s failed: %v", reading, err)
		}
	}
	if len(received) != 3 {
		t.Fatalf("subscriber received %d messages, want 3", len(received))
	}
	first, err := envelope.Decode(received[0])
	if err != nil {
		t.Fatalf("failed to decode delivered envelope: %v", err)
	}
	if want := []byte(`{"temp":20.5}`); !bytes.Equal(first.Payload, want) {
		t.Errorf("first delivery: got %s, want %s", first.Payload, want)
	}

	// Invocation round trip.
	out, err := client.Invoke(ctx, cfg.FunctionArn, []byte(`{"query":"setPoint"}`))
	if err != nil {
		t.Fatalf("invoke failed: %v", err)
	}
	if want := []byte(`{"setPoint":21}`); !bytes.Equal(out, want) {
		t.Errorf("invoke response: got %s, want %s", out, want)
	}

	// Shadow updates merge and notify the delta handler.
	if _, err := client.UpdateShadow(ctx, "thermostat-1", []byte(`{"reported":{"temp":21},"desired":{"temp":22}}`)); err != nil {
		t.Fatalf("first shadow update failed: %v", err)
	}
	merged, err := client.UpdateShadow(ctx, "thermostat-1", []byte(`{"desired":{"temp":23}}`))
	if err != nil {
		t.Fatalf("second shadow update failed: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(merged, &doc); err != nil {
		t.Fatalf("failed to decode merged shadow: %v", err)
	}
	if reported := doc["reported"].(map[string]any); reported["temp"] != 21.0 {
		t.Errorf("reported temp lost in merge: got %v, want 21", reported["temp"])
	}
	if desired := doc["desired"].(map[string]any); desired["temp"] != 23.0 {
		t.Errorf("desired temp: got %v, want 23", desired["temp"])
	}
	if len(deltas) != 2 {
		t.Errorf("delta handler called %d times, want 2", len(deltas))
	}

	// Secret retrieval from the local secrets manager.
	client.Mock().SetSecret("thermostat/api-key", []byte("s3cret"))
	secret, err := client.GetSecret(ctx, "thermostat/api-key")
	if err != nil {
		t.Fatalf("get secret failed: %v", err)
	}
	if !bytes.Equal(secret, []byte("s3cret")) {
		t.Errorf("secret value: got %q, want %q", secret, "s3cret")
	}

	// Injected failure surfaces as a typed error and leaks nothing.
	client.Mock().FailNext(dispatch.OpPublish, dispatch.NewError(dispatch.KindTransient, "queue full"))
	err = client.Publish(ctx, "thermostat/telemetry", []byte(`{"temp":21.2}`))
	if kind := dispatch.KindOf(err); kind != dispatch.KindTransient {
		t.Errorf("injected failure kind: got %s, want %s", kind, dispatch.KindTransient)
	}
	if got := len(client.Mock().Messages("thermostat/telemetry")); got != 3 {
		t.Errorf("failed publish recorded a message: got %d, want 3", got)
	}
	if open := client.Mock().OpenHandles(); open != 0 {
		t.Errorf("open handles after scenario: got %d, want 0", open)
	}

	// Queued publishes drain in order after the injected failure is consumed.
	q := client.NewPublishQueue()
	for _, reading := range []string{`{"temp":21.3}`, `{"temp":21.4}`} {
		if err := q.Enqueue(ctx, "thermostat/telemetry", []byte(reading)); err != nil {
			t.Fatalf("enqueue failed: %v", err)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("queue close failed: %v", err)
	}
	msgs := client.Mock().Messages("thermostat/telemetry")
	if len(msgs) != 5 {
		t.Fatalf("topic log length: got %d, want 5", len(msgs))
	}
	if want := []byte(`{"temp":21.4}`); !bytes.Equal(msgs[4], want) {
		t.Errorf("last queued publish: got %s, want %s", msgs[4], want)
	}

	report := client.Metrics()
	if report.Publishes != 5 {
		t.Errorf("publish count: got %d, want 5", report.Publishes)
	}
	if report.Invocations != 1 {
		t.Errorf("invocation count: got %d, want 1", report.Invocations)
	}
	if report.ShadowWrites != 2 {
		t.Errorf("shadow write count: got %d, want 2", report.ShadowWrites)
	}
	if report.Errors != 1 {
		t.Errorf("error count: got %d, want 1", report.Errors)
	}
}
