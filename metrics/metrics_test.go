package metrics

import (
	"strings"
	"sync"
	"testing"
	"time"

	json "github.com/goccy/go-json"
)

func TestGenerateReport(t *testing.T) {
	m := NewMetrics()
	m.RecordPublish()
	m.RecordPublish()
	m.RecordInvocation()
	m.RecordShadowRead()
	m.RecordShadowWrite()
	m.RecordLogWrite()
	m.RecordError()
	m.RecordHandlerError()
	m.RecordDispatchTime(5 * time.Millisecond)

	report := m.GenerateReport()
	if report.Publishes != 2 {
		t.Errorf("publishes: got %d, want 2", report.Publishes)
	}
	if report.Invocations != 1 {
		t.Errorf("invocations: got %d, want 1", report.Invocations)
	}
	if report.ShadowReads != 1 {
		t.Errorf("shadow reads: got %d, want 1", report.ShadowReads)
	}
	if report.ShadowWrites != 1 {
		t.Errorf("shadow writes: got %d, want 1", report.ShadowWrites)
	}
	if report.LogWrites != 1 {
		t.Errorf("log writes: got %d, want 1", report.LogWrites)
	}
	if report.Errors != 1 {
		t.Errorf("errors: got %d, want 1", report.Errors)
	}
	if report.HandlerErrors != 1 {
		t.Errorf("handler errors: got %d, want 1", report.HandlerErrors)
	}
	if report.Duration < 0 {
		t.Errorf("duration is negative: %v", report.Duration)
	}
	if report.EndTime.Before(report.StartTime) {
		t.Error("end time precedes start time")
	}
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.RecordPublish()
				m.RecordError()
				m.RecordDispatchTime(time.Microsecond)
			}
		}()
	}
	wg.Wait()

	report := m.GenerateReport()
	if report.Publishes != 800 {
		t.Errorf("publishes: got %d, want 800", report.Publishes)
	}
	if report.Errors != 800 {
		t.Errorf("errors: got %d, want 800", report.Errors)
	}
}

func TestReport_MarshalJSON(t *testing.T) {
	m := NewMetrics()
	m.RecordPublish()
	m.RecordDispatchTime(1500 * time.Millisecond)

	data, err := json.Marshal(m.GenerateReport())
	if err != nil {
		t.Fatalf("failed to marshal report: %v", err)
	}
	if !strings.Contains(string(data), `"publishes":1`) {
		t.Errorf("json %s missing publish count", data)
	}
	// Duration renders as a human-readable string, not nanoseconds.
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("failed to decode report json: %v", err)
	}
	if _, ok := decoded["duration"].(string); !ok {
		t.Errorf("duration field is %T, want string", decoded["duration"])
	}
}

func TestReport_String(t *testing.T) {
	m := NewMetrics()
	m.RecordPublish()
	s := m.GenerateReport().String()
	if !strings.Contains(s, "Publishes: 1") {
		t.Errorf("summary %q missing publish count", s)
	}
}
