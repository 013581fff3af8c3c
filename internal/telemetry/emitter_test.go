package telemetry

import (
	"context"
	"testing"
	"time"
)

type captureStore struct {
	events []Event
}

func (s *captureStore) AppendTelemetryEvent(_ context.Context, evt Event) error {
	s.events = append(s.events, evt)
	return nil
}

func TestEmitFillsDefaults(t *testing.T) {
	store := &captureStore{}
	emitter := NewEmitter(store, "gateway")
	fixed := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	emitter.clock = func() time.Time { return fixed }

	if err := emitter.Emit(context.Background(), Event{EventName: "replica.started"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(store.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(store.events))
	}
	evt := store.events[0]
	if !evt.Timestamp.Equal(fixed) {
		t.Fatalf("timestamp = %v, want %v", evt.Timestamp, fixed)
	}
	if evt.Source != "gateway" {
		t.Fatalf("source = %q, want %q", evt.Source, "gateway")
	}
	if evt.Severity != SeverityInfo {
		t.Fatalf("severity = %q, want %q", evt.Severity, SeverityInfo)
	}
}

func TestEmitPreservesExplicitFields(t *testing.T) {
	store := &captureStore{}
	emitter := NewEmitter(store, "gateway")

	stamp := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	evt := Event{
		EventName: "scale.up",
		Severity:  SeverityWarn,
		Source:    "autoscaler",
		Timestamp: stamp,
	}
	if err := emitter.Emit(context.Background(), evt); err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := store.events[0]
	if got.Source != "autoscaler" {
		t.Fatalf("source = %q, want %q", got.Source, "autoscaler")
	}
	if got.Severity != SeverityWarn {
		t.Fatalf("severity = %q, want %q", got.Severity, SeverityWarn)
	}
	if !got.Timestamp.Equal(stamp) {
		t.Fatalf("timestamp = %v, want %v", got.Timestamp, stamp)
	}
}

func TestEmitNilEmitterAndStoreAreNoops(t *testing.T) {
	var nilEmitter *Emitter
	if err := nilEmitter.Emit(context.Background(), Event{EventName: "ignored"}); err != nil {
		t.Fatalf("nil emitter should no-op, got %v", err)
	}
	emitter := NewEmitter(nil, "studio")
	if err := emitter.Emit(context.Background(), Event{EventName: "ignored"}); err != nil {
		t.Fatalf("nil store should no-op, got %v", err)
	}
}
