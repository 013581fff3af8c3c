// Package app wires the classifier chain, history storage, and scraper
// behind the studio HTTP service.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
	"github.com/figdock/figdock/internal/platform/id"
	"github.com/figdock/figdock/internal/studio/classify"
	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/scrape"
	"github.com/figdock/figdock/internal/studio/storage"
	"github.com/figdock/figdock/internal/telemetry"
)

// scrapeParallelism bounds concurrent figure downloads and classifications
// in a batch scrape.
const scrapeParallelism = 4

// Result is a classification response enriched with persistence facts.
type Result struct {
	ID string `json:"id"`
	domain.Classification
	ImageHash  string `json:"image_hash"`
	SourceURL  string `json:"source_url,omitempty"`
	Cached     bool   `json:"cached"`
	DurationMs int64  `json:"duration_ms"`
}

// FigureResult pairs one scraped figure with its classification outcome.
type FigureResult struct {
	URL    string  `json:"url"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Service owns studio application logic: classify, history, batch scrape.
type Service struct {
	chain   *classify.Chain
	store   storage.Store
	scraper *scrape.Scraper
	emitter *telemetry.Emitter
	clock   func() time.Time
}

// NewService wires a studio service. The emitter may be nil (telemetry
// becomes a no-op); the scraper may be nil (scrape endpoints fail with a
// domain error).
func NewService(chain *classify.Chain, store storage.Store, scraper *scrape.Scraper, emitter *telemetry.Emitter) (*Service, error) {
	if chain == nil {
		return nil, fmt.Errorf("classifier chain is required")
	}
	if store == nil {
		return nil, fmt.Errorf("storage is required")
	}
	return &Service{
		chain:   chain,
		store:   store,
		scraper: scraper,
		emitter: emitter,
		clock:   time.Now,
	}, nil
}

// ClassifyBytes classifies one figure image. An identical image already
// on record short-circuits to the stored result.
func (s *Service) ClassifyBytes(ctx context.Context, data []byte, sourceURL string) (Result, error) {
	hash := classify.ImageHash(data)

	if record, err := s.store.LookupByImageHash(ctx, hash); err == nil {
		return recordToResult(record, true), nil
	} else if apperrors.CodeOf(err) != apperrors.CodeNotFound {
		return Result{}, fmt.Errorf("lookup image hash: %w", err)
	}

	started := s.clock()
	classification, _, err := s.chain.Classify(ctx, data)
	if err != nil {
		s.emit(ctx, telemetry.Event{
			EventName: "classification.failed",
			Severity:  telemetry.SeverityWarn,
			Attributes: map[string]any{
				"image_hash": hash,
				"error":      err.Error(),
			},
		})
		return Result{}, err
	}
	duration := s.clock().Sub(started)

	recordID, err := id.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("generate record id: %w", err)
	}
	record := storage.ClassificationRecord{
		ID:          recordID,
		ImageHash:   hash,
		SourceURL:   sourceURL,
		Class:       classification.Class,
		Confidence:  classification.Confidence,
		Method:      classification.Method,
		Description: classification.Description,
		Reasoning:   classification.Reasoning,
		Elements:    classification.VisualElements,
		DurationMs:  duration.Milliseconds(),
		CreatedAt:   s.clock().UTC(),
	}
	if err := s.store.RecordClassification(ctx, record); err != nil {
		return Result{}, fmt.Errorf("record classification: %w", err)
	}

	return Result{
		ID:             recordID,
		Classification: classification,
		ImageHash:      hash,
		SourceURL:      sourceURL,
		DurationMs:     record.DurationMs,
	}, nil
}

// ClassifyURL downloads one image and classifies it.
func (s *Service) ClassifyURL(ctx context.Context, imageURL string) (Result, error) {
	if s.scraper == nil {
		return Result{}, apperrors.New(apperrors.CodeScrapeFetchFailed, "url fetching is not configured")
	}
	data, err := s.scraper.Download(ctx, imageURL)
	if err != nil {
		return Result{}, err
	}
	return s.ClassifyBytes(ctx, data, imageURL)
}

// ScrapePage extracts candidate figures from a page and classifies each.
// Per-figure failures are reported inline; the call fails only when no
// figure could be extracted at all.
func (s *Service) ScrapePage(ctx context.Context, pageURL string) ([]FigureResult, error) {
	if s.scraper == nil {
		return nil, apperrors.New(apperrors.CodeScrapeFetchFailed, "scraping is not configured")
	}
	figures, err := s.scraper.Figures(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	results := make([]FigureResult, len(figures))
	var mu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(scrapeParallelism)
	for i, figure := range figures {
		group.Go(func() error {
			entry := FigureResult{URL: figure.URL}
			data, err := s.scraper.Download(groupCtx, figure.URL)
			if err == nil {
				var result Result
				result, err = s.ClassifyBytes(groupCtx, data, figure.URL)
				if err == nil {
					entry.Result = &result
				}
			}
			if err != nil {
				entry.Error = err.Error()
			}
			mu.Lock()
			results[i] = entry
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// History returns a page of recorded classifications.
func (s *Service) History(ctx context.Context, filter storage.ListFilter) ([]Result, error) {
	records, err := s.store.ListClassifications(ctx, filter)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(records))
	for _, record := range records {
		results = append(results, recordToResult(record, false))
	}
	return results, nil
}

// Get returns one recorded classification.
func (s *Service) Get(ctx context.Context, recordID string) (Result, error) {
	record, err := s.store.GetClassification(ctx, recordID)
	if err != nil {
		return Result{}, err
	}
	return recordToResult(record, false), nil
}

// Stats aggregates recorded classifications per class.
func (s *Service) Stats(ctx context.Context) ([]storage.ClassCount, error) {
	return s.store.ClassCounts(ctx)
}

func (s *Service) emit(ctx context.Context, evt telemetry.Event) {
	if s.emitter == nil {
		return
	}
	// Telemetry never fails the request path.
	_ = s.emitter.Emit(ctx, evt)
}

func recordToResult(record storage.ClassificationRecord, cached bool) Result {
	return Result{
		ID: record.ID,
		Classification: domain.Classification{
			Class:          record.Class,
			Label:          record.Class.Label(),
			Confidence:     record.Confidence,
			Description:    record.Description,
			Reasoning:      record.Reasoning,
			VisualElements: record.Elements,
			Method:         record.Method,
		},
		ImageHash:  record.ImageHash,
		SourceURL:  record.SourceURL,
		Cached:     cached,
		DurationMs: record.DurationMs,
	}
}
