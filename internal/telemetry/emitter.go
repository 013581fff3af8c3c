// Package telemetry records operational events for audits and incident analysis.
package telemetry

import (
	"context"
	"time"
)

// Severity describes the telemetry severity level.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// Event captures an operational observation emitted by a service.
type Event struct {
	Timestamp      time.Time
	EventName      string
	Severity       Severity
	Source         string
	RequestID      string
	TraceID        string
	SpanID         string
	Attributes     map[string]any
	AttributesJSON []byte
}

// EventStore persists operational telemetry records.
type EventStore interface {
	AppendTelemetryEvent(ctx context.Context, evt Event) error
}

// Emitter records operational telemetry events.
type Emitter struct {
	store  EventStore
	source string
	clock  func() time.Time
}

// NewEmitter creates a telemetry emitter attributing events to source.
func NewEmitter(store EventStore, source string) *Emitter {
	return &Emitter{store: store, source: source, clock: time.Now}
}

// Emit records a telemetry event. It is a no-op when the store is nil.
func (e *Emitter) Emit(ctx context.Context, evt Event) error {
	if e == nil || e.store == nil {
		return nil
	}
	if evt.Timestamp.IsZero() {
		if e.clock == nil {
			evt.Timestamp = time.Now().UTC()
		} else {
			evt.Timestamp = e.clock().UTC()
		}
	}
	if evt.Source == "" {
		evt.Source = e.source
	}
	if evt.Severity == "" {
		evt.Severity = SeverityInfo
	}
	return e.store.AppendTelemetryEvent(ctx, evt)
}
