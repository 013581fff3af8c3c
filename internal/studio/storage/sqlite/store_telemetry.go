package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/figdock/figdock/internal/platform/id"
	"github.com/figdock/figdock/internal/studio/storage"
	"github.com/figdock/figdock/internal/telemetry"
)

// AppendTelemetryEvent implements telemetry.EventStore: it journals one
// operational event.
func (s *Store) AppendTelemetryEvent(ctx context.Context, evt telemetry.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(evt.EventName) == "" {
		return fmt.Errorf("event name is required")
	}
	if evt.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}

	attrs := evt.AttributesJSON
	if len(attrs) == 0 {
		if len(evt.Attributes) == 0 {
			attrs = []byte("{}")
		} else {
			encoded, err := json.Marshal(evt.Attributes)
			if err != nil {
				return fmt.Errorf("marshal event attributes: %w", err)
			}
			attrs = encoded
		}
	}

	eventID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("generate event id: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO telemetry_events (id, event_name, severity, source, request_id, attrs, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		eventID,
		strings.TrimSpace(evt.EventName),
		string(evt.Severity),
		strings.TrimSpace(evt.Source),
		strings.TrimSpace(evt.RequestID),
		string(attrs),
		toMillis(evt.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("append telemetry event: %w", err)
	}
	return nil
}

// ListTelemetryEvents returns the newest events first, capped at limit.
func (s *Store) ListTelemetryEvents(ctx context.Context, limit int) ([]storage.TelemetryEventRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, event_name, severity, source, request_id, attrs, created_at
FROM telemetry_events
ORDER BY created_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("list telemetry events: %w", err)
	}
	defer rows.Close()

	var records []storage.TelemetryEventRecord
	for rows.Next() {
		var record storage.TelemetryEventRecord
		var createdAt int64
		if err := rows.Scan(&record.ID, &record.EventName, &record.Severity,
			&record.Source, &record.RequestID, &record.Attrs, &createdAt); err != nil {
			return nil, fmt.Errorf("scan telemetry event: %w", err)
		}
		record.CreatedAt = fromMillis(createdAt)
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate telemetry events: %w", err)
	}
	return records, nil
}
