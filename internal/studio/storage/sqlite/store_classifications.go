package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/storage"
)

// maxListLimit caps one history page.
const maxListLimit = 200

const classificationColumns = `id, image_hash, source_url, class, confidence, method, description, reasoning, elements, duration_ms, created_at`

// RecordClassification persists one classification.
func (s *Store) RecordClassification(ctx context.Context, record storage.ClassificationRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("classification id is required")
	}
	if strings.TrimSpace(record.ImageHash) == "" {
		return fmt.Errorf("image hash is required")
	}
	if !record.Class.Valid() {
		return fmt.Errorf("class %q is not in the taxonomy", record.Class)
	}
	if record.CreatedAt.IsZero() {
		return fmt.Errorf("created at is required")
	}

	elements, err := encodeStrings(record.Elements)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT INTO classifications (
	`+classificationColumns+`
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		strings.TrimSpace(record.ID),
		strings.TrimSpace(record.ImageHash),
		strings.TrimSpace(record.SourceURL),
		string(record.Class),
		record.Confidence,
		string(record.Method),
		record.Description,
		record.Reasoning,
		elements,
		record.DurationMs,
		toMillis(record.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record classification: %w", err)
	}
	return nil
}

// GetClassification loads one classification by id.
func (s *Store) GetClassification(ctx context.Context, id string) (storage.ClassificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ClassificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ClassificationRecord{}, fmt.Errorf("storage is not configured")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("classification id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+classificationColumns+` FROM classifications WHERE id = ?
`, id)
	return scanClassificationRow(row)
}

// LookupByImageHash returns the newest classification of an identical
// image, for dedupe before re-running the chain.
func (s *Store) LookupByImageHash(ctx context.Context, imageHash string) (storage.ClassificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.ClassificationRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.ClassificationRecord{}, fmt.Errorf("storage is not configured")
	}
	imageHash = strings.TrimSpace(imageHash)
	if imageHash == "" {
		return storage.ClassificationRecord{}, fmt.Errorf("image hash is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT `+classificationColumns+` FROM classifications
WHERE image_hash = ?
ORDER BY created_at DESC, id DESC
LIMIT 1
`, imageHash)
	return scanClassificationRow(row)
}

// ListClassifications returns a newest-first page of classifications.
func (s *Store) ListClassifications(ctx context.Context, filter storage.ListFilter) ([]storage.ClassificationRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + classificationColumns + ` FROM classifications`
	args := []any{}
	if filter.Class != "" {
		query += ` WHERE class = ?`
		args = append(args, string(filter.Class))
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list classifications: %w", err)
	}
	defer rows.Close()

	var records []storage.ClassificationRecord
	for rows.Next() {
		record, err := scanClassification(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifications: %w", err)
	}
	return records, nil
}

// ClassCounts aggregates recorded classifications per class.
func (s *Store) ClassCounts(ctx context.Context) ([]storage.ClassCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT class, COUNT(*) FROM classifications GROUP BY class ORDER BY COUNT(*) DESC, class ASC
`)
	if err != nil {
		return nil, fmt.Errorf("count classes: %w", err)
	}
	defer rows.Close()

	var counts []storage.ClassCount
	for rows.Next() {
		var class string
		var count int
		if err := rows.Scan(&class, &count); err != nil {
			return nil, fmt.Errorf("scan class count: %w", err)
		}
		counts = append(counts, storage.ClassCount{Class: domain.Class(class), Count: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class counts: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClassificationRow(row *sql.Row) (storage.ClassificationRecord, error) {
	record, err := scanClassification(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ClassificationRecord{}, apperrors.New(apperrors.CodeNotFound, "classification not found")
		}
		return storage.ClassificationRecord{}, err
	}
	return record, nil
}

func scanClassification(scanner rowScanner) (storage.ClassificationRecord, error) {
	var record storage.ClassificationRecord
	var class, method, elements string
	var createdAt int64
	err := scanner.Scan(
		&record.ID,
		&record.ImageHash,
		&record.SourceURL,
		&class,
		&record.Confidence,
		&method,
		&record.Description,
		&record.Reasoning,
		&elements,
		&record.DurationMs,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.ClassificationRecord{}, err
		}
		return storage.ClassificationRecord{}, fmt.Errorf("scan classification: %w", err)
	}
	record.Class = domain.Class(class)
	record.Method = domain.Method(method)
	record.CreatedAt = fromMillis(createdAt)
	record.Elements, err = decodeStrings(elements)
	if err != nil {
		return storage.ClassificationRecord{}, err
	}
	return record, nil
}
