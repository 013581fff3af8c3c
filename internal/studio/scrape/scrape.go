// Package scrape extracts candidate figure images from a web page so the
// classifier chain can process them in bulk.
package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

const (
	// fetchTimeout bounds both the page fetch and each image download.
	fetchTimeout = 10 * time.Second
	// maxPageBytes caps how much HTML the extractor reads.
	maxPageBytes = 4 << 20
	// maxImageBytes caps one downloaded figure.
	maxImageBytes = 4 << 20
	// MaxFigures caps how many candidate figures one page yields.
	MaxFigures = 12
	// minPixelSize filters tracking pixels and spacer gifs by declared
	// dimensions when the page supplies them.
	minPixelSize = 32
)

// Figure is a candidate image found on a page.
type Figure struct {
	URL string
	Alt string
}

// Scraper fetches pages and figure images.
type Scraper struct {
	client *http.Client
}

// New builds a scraper. A nil client gets a timeout-bounded default.
func New(client *http.Client) *Scraper {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Scraper{client: client}
}

// Figures fetches the page and returns candidate figure URLs:
// absolute-ized, deduplicated, capped at MaxFigures. Data URIs and
// declared tracking pixels are skipped.
func (s *Scraper) Figures(ctx context.Context, pageURL string) ([]Figure, error) {
	base, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil || !base.IsAbs() || (base.Scheme != "http" && base.Scheme != "https") {
		return nil, apperrors.WithMetadata(apperrors.CodeScrapeURLInvalid,
			"page url must be absolute http(s)", map[string]string{"url": pageURL})
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build page request: %w", err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScrapeFetchFailed, "fetch page", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, apperrors.WithMetadata(apperrors.CodeScrapeFetchFailed,
			"page fetch failed", map[string]string{"status": res.Status})
	}

	// A URL that already serves an image is its own single candidate.
	if strings.HasPrefix(strings.TrimSpace(res.Header.Get("Content-Type")), "image/") {
		return []Figure{{URL: base.String()}}, nil
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(res.Body, maxPageBytes))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScrapeFetchFailed, "parse page", err)
	}

	seen := map[string]bool{}
	var figures []Figure

	// og:image is the page author's pick for the representative figure,
	// so it leads the candidate list.
	if og, ok := doc.Find(`meta[property="og:image"]`).Attr("content"); ok {
		if abs, ok := resolveFigureURL(base, og); ok {
			seen[abs] = true
			figures = append(figures, Figure{URL: abs})
		}
	}

	doc.Find("img").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		src, ok := sel.Attr("src")
		if !ok {
			return true
		}
		if isTrackingPixel(sel) {
			return true
		}
		key, ok := resolveFigureURL(base, src)
		if !ok || seen[key] {
			return true
		}
		seen[key] = true
		alt, _ := sel.Attr("alt")
		figures = append(figures, Figure{URL: key, Alt: strings.TrimSpace(alt)})
		return len(figures) < MaxFigures
	})

	if len(figures) == 0 {
		return nil, apperrors.WithMetadata(apperrors.CodeScrapeNoFigures,
			"page contains no candidate figures", map[string]string{"url": base.String()})
	}
	return figures, nil
}

// Download fetches one figure image, enforcing the byte cap.
func (s *Scraper) Download(ctx context.Context, figureURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, figureURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build image request: %w", err)
	}
	res, err := s.client.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeScrapeFetchFailed, "fetch image", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, apperrors.WithMetadata(apperrors.CodeScrapeFetchFailed,
			"image fetch failed", map[string]string{"status": res.Status, "url": figureURL})
	}

	data, err := io.ReadAll(io.LimitReader(res.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, apperrors.WithMetadata(apperrors.CodeScrapeBodyTooLarge,
			"image exceeds download cap", map[string]string{"url": figureURL})
	}
	return data, nil
}

// resolveFigureURL absolute-izes a candidate reference against the page
// URL, rejecting empty, data: and non-http(s) references.
func resolveFigureURL(base *url.URL, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.HasPrefix(raw, "data:") {
		return "", false
	}
	ref, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}

// isTrackingPixel reports whether declared width/height mark the image as
// too small to be a figure. Images without declared sizes pass through.
func isTrackingPixel(sel *goquery.Selection) bool {
	width, wok := dimension(sel, "width")
	height, hok := dimension(sel, "height")
	if wok && width < minPixelSize {
		return true
	}
	if hok && height < minPixelSize {
		return true
	}
	return false
}

func dimension(sel *goquery.Selection, name string) (int, bool) {
	raw, ok := sel.Attr(name)
	if !ok {
		return 0, false
	}
	var value int
	if _, err := fmt.Sscanf(strings.TrimSpace(raw), "%d", &value); err != nil {
		return 0, false
	}
	return value, true
}
