package scrape

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
)

func TestFiguresExtractsAndDedupes(t *testing.T) {
	page := `<html><body>
<img src="/figures/chart.png" alt="a bar chart">
<img src="/figures/chart.png" alt="duplicate">
<img src="https://cdn.example.com/photo.jpg">
<img src="data:image/gif;base64,R0lGOD">
<img src="/pixel.gif" width="1" height="1">
<img>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	figures, err := New(server.Client()).Figures(context.Background(), server.URL+"/doc")
	if err != nil {
		t.Fatalf("figures: %v", err)
	}
	if len(figures) != 2 {
		t.Fatalf("expected 2 figures, got %d: %+v", len(figures), figures)
	}
	if figures[0].URL != server.URL+"/figures/chart.png" {
		t.Fatalf("expected absolute-ized url, got %q", figures[0].URL)
	}
	if figures[0].Alt != "a bar chart" {
		t.Fatalf("expected alt text, got %q", figures[0].Alt)
	}
	if figures[1].URL != "https://cdn.example.com/photo.jpg" {
		t.Fatalf("expected external url kept, got %q", figures[1].URL)
	}
}

func TestFiguresPassesThroughDirectImageURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer server.Close()

	figures, err := New(server.Client()).Figures(context.Background(), server.URL+"/chart.png")
	if err != nil {
		t.Fatalf("figures: %v", err)
	}
	if len(figures) != 1 {
		t.Fatalf("expected the image url itself, got %+v", figures)
	}
	if figures[0].URL != server.URL+"/chart.png" {
		t.Fatalf("expected %q, got %q", server.URL+"/chart.png", figures[0].URL)
	}
}

func TestFiguresLeadsWithOGImage(t *testing.T) {
	page := `<html><head>
<meta property="og:image" content="/figures/hero.png">
</head><body>
<img src="/figures/chart.png" alt="a bar chart">
<img src="/figures/hero.png" alt="duplicate of og:image">
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, page)
	}))
	defer server.Close()

	figures, err := New(server.Client()).Figures(context.Background(), server.URL+"/doc")
	if err != nil {
		t.Fatalf("figures: %v", err)
	}
	if len(figures) != 2 {
		t.Fatalf("expected og:image deduped against img tags, got %+v", figures)
	}
	if figures[0].URL != server.URL+"/figures/hero.png" {
		t.Fatalf("expected og:image first, got %q", figures[0].URL)
	}
	if figures[1].URL != server.URL+"/figures/chart.png" {
		t.Fatalf("expected img candidate second, got %q", figures[1].URL)
	}
}

func TestFiguresCapsCount(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("<html><body>")
	for i := 0; i < MaxFigures+5; i++ {
		fmt.Fprintf(&sb, `<img src="/fig-%d.png">`, i)
	}
	sb.WriteString("</body></html>")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, sb.String())
	}))
	defer server.Close()

	figures, err := New(server.Client()).Figures(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("figures: %v", err)
	}
	if len(figures) != MaxFigures {
		t.Fatalf("expected cap of %d figures, got %d", MaxFigures, len(figures))
	}
}

func TestFiguresRejectsBadURL(t *testing.T) {
	s := New(nil)
	for _, bad := range []string{"", "not-a-url", "ftp://example.com/x", "/relative"} {
		_, err := s.Figures(context.Background(), bad)
		if apperrors.CodeOf(err) != apperrors.CodeScrapeURLInvalid {
			t.Fatalf("url %q: expected invalid-url code, got %v", bad, err)
		}
	}
}

func TestFiguresNoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "<html><body><p>no images here</p></body></html>")
	}))
	defer server.Close()

	_, err := New(server.Client()).Figures(context.Background(), server.URL)
	if apperrors.CodeOf(err) != apperrors.CodeScrapeNoFigures {
		t.Fatalf("expected no-figures code, got %v", err)
	}
}

func TestDownloadEnforcesCap(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/big" {
			w.Write(make([]byte, maxImageBytes+10))
			return
		}
		w.Write([]byte("image-bytes"))
	}))
	defer server.Close()

	s := New(server.Client())
	data, err := s.Download(context.Background(), server.URL+"/ok")
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	if string(data) != "image-bytes" {
		t.Fatalf("unexpected body %q", data)
	}

	_, err = s.Download(context.Background(), server.URL+"/big")
	if apperrors.CodeOf(err) != apperrors.CodeScrapeBodyTooLarge {
		t.Fatalf("expected too-large code, got %v", err)
	}
}

func TestDownloadNon200(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	_, err := New(server.Client()).Download(context.Background(), server.URL+"/x")
	if apperrors.CodeOf(err) != apperrors.CodeScrapeFetchFailed {
		t.Fatalf("expected fetch-failed code, got %v", err)
	}
}
