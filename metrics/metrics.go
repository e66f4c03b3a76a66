// Package metrics collects counters for dispatch activity: calls per
// operation, failures, and handler invocations. Counters use atomic updates
// so recording never contends with the dispatch path.
package metrics

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
)

// Metrics accumulates dispatch counters. Create instances with NewMetrics.
type Metrics struct {
	mu sync.RWMutex

	publishes     int64 // Messages published to topics
	invocations   int64 // Lambda invocations dispatched to the registered handler
	shadowReads   int64 // Shadow get operations
	shadowWrites  int64 // Shadow update and delete operations
	logWrites     int64 // Log lines forwarded to the runtime
	secretReads   int64 // Secret value reads
	errors        int64 // Operations that returned a dispatch error
	handlerErrors int64 // Registered handlers that returned an error

	dispatchTime time.Duration // Total wall time spent inside backend calls
	startTime    time.Time     // When collection started
}

// NewMetrics creates a Metrics instance with collection starting now.
func NewMetrics() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordPublish counts one published message.
func (m *Metrics) RecordPublish() { atomic.AddInt64(&m.publishes, 1) }

// RecordInvocation counts one handler invocation.
func (m *Metrics) RecordInvocation() { atomic.AddInt64(&m.invocations, 1) }

// RecordShadowRead counts one shadow get.
func (m *Metrics) RecordShadowRead() { atomic.AddInt64(&m.shadowReads, 1) }

// RecordShadowWrite counts one shadow update or delete.
func (m *Metrics) RecordShadowWrite() { atomic.AddInt64(&m.shadowWrites, 1) }

// RecordLogWrite counts one forwarded log line.
func (m *Metrics) RecordLogWrite() { atomic.AddInt64(&m.logWrites, 1) }

// RecordSecretRead counts one secret value read.
func (m *Metrics) RecordSecretRead() { atomic.AddInt64(&m.secretReads, 1) }

// RecordError counts one failed operation.
func (m *Metrics) RecordError() { atomic.AddInt64(&m.errors, 1) }

// RecordHandlerError counts one handler that returned an error.
func (m *Metrics) RecordHandlerError() { atomic.AddInt64(&m.handlerErrors, 1) }

// RecordDispatchTime accumulates time spent blocked in a backend call.
func (m *Metrics) RecordDispatchTime(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dispatchTime += d
}

// Report is a point-in-time summary of dispatch activity, suitable for JSON
// output.
type Report struct {
	StartTime     time.Time     `json:"startTime"`     // When collection started
	EndTime       time.Time     `json:"endTime"`       // When the report was generated
	Publishes     int64         `json:"publishes"`     // Messages published
	Invocations   int64         `json:"invocations"`   // Handler invocations
	ShadowReads   int64         `json:"shadowReads"`   // Shadow gets
	ShadowWrites  int64         `json:"shadowWrites"`  // Shadow updates and deletes
	LogWrites     int64         `json:"logWrites"`     // Forwarded log lines
	SecretReads   int64         `json:"secretReads"`   // Secret value reads
	Errors        int64         `json:"errors"`        // Failed operations
	HandlerErrors int64         `json:"handlerErrors"` // Handlers that returned errors
	Duration      time.Duration `json:"duration"`      // Collection window length
}

// GenerateReport snapshots the counters into a Report.
func (m *Metrics) GenerateReport() Report {
	endTime := time.Now()
	return Report{
		StartTime:     m.startTime,
		EndTime:       endTime,
		Publishes:     atomic.LoadInt64(&m.publishes),
		Invocations:   atomic.LoadInt64(&m.invocations),
		ShadowReads:   atomic.LoadInt64(&m.shadowReads),
		ShadowWrites:  atomic.LoadInt64(&m.shadowWrites),
		LogWrites:     atomic.LoadInt64(&m.logWrites),
		SecretReads:   atomic.LoadInt64(&m.secretReads),
		Errors:        atomic.LoadInt64(&m.errors),
		HandlerErrors: atomic.LoadInt64(&m.handlerErrors),
		Duration:      endTime.Sub(m.startTime),
	}
}

// MarshalJSON formats the report with a human-readable duration.
func (r Report) MarshalJSON() ([]byte, error) {
	type Alias Report
	return json.Marshal(&struct {
		Alias
		Duration string `json:"duration"`
	}{
		Alias:    Alias(r),
		Duration: r.Duration.String(),
	})
}

// String returns a human-readable summary.
func (r Report) String() string {
	return fmt.Sprintf(
		"Dispatch activity over %s\n"+
			"Publishes: %d\n"+
			"Invocations: %d\n"+
			"Shadow reads/writes: %d/%d\n"+
			"Errors: %d (%d from handlers)",
		r.Duration,
		r.Publishes,
		r.Invocations,
		r.ShadowReads,
		r.ShadowWrites,
		r.Errors,
		r.HandlerErrors,
	)
}
