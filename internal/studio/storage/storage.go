// Package storage defines the records and contracts for classification
// history persistence.
package storage

import (
	"context"
	"time"

	"github.com/figdock/figdock/internal/studio/domain"
)

// ClassificationRecord is one persisted classification.
type ClassificationRecord struct {
	ID          string
	ImageHash   string
	SourceURL   string
	Class       domain.Class
	Confidence  float64
	Method      domain.Method
	Description string
	Reasoning   string
	Elements    []string
	DurationMs  int64
	CreatedAt   time.Time
}

// ListFilter narrows and pages classification listings.
type ListFilter struct {
	// Class filters to one class when set.
	Class domain.Class
	// Limit caps the page size. Stores clamp it to their maximum.
	Limit int
	// Offset skips past earlier records, newest first.
	Offset int
}

// ClassCount pairs a class with how many recorded classifications it has.
type ClassCount struct {
	Class domain.Class
	Count int
}

// TelemetryEventRecord is one persisted operational event.
type TelemetryEventRecord struct {
	ID        string
	EventName string
	Severity  string
	Source    string
	RequestID string
	Attrs     string
	CreatedAt time.Time
}

// Store is the classification history contract the studio app depends on.
type Store interface {
	RecordClassification(ctx context.Context, record ClassificationRecord) error
	GetClassification(ctx context.Context, id string) (ClassificationRecord, error)
	ListClassifications(ctx context.Context, filter ListFilter) ([]ClassificationRecord, error)
	LookupByImageHash(ctx context.Context, imageHash string) (ClassificationRecord, error)
	ClassCounts(ctx context.Context) ([]ClassCount, error)
}
