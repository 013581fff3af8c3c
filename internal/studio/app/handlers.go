package app

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	apperrors "github.com/figdock/figdock/internal/platform/errors"
	errori18n "github.com/figdock/figdock/internal/platform/errors/i18n"
	"github.com/figdock/figdock/internal/platform/httpx"
	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/storage"
	"github.com/figdock/figdock/internal/studio/vision"
)

// maxUploadBytes caps multipart classify uploads. Matches the decoder's
// own image size limit so oversized uploads fail before buffering.
const maxUploadBytes = vision.MaxImageBytes

type handler struct {
	service *Service
}

func registerRoutes(mux *http.ServeMux, service *Service) {
	h := &handler{service: service}

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(fmt.Sprintf("static assets: %v", err))
	}
	mux.Handle("/static/", http.StripPrefix("/static/", http.FileServer(http.FS(staticSub))))

	mux.HandleFunc(http.MethodGet+" /{$}", h.handleIndex)
	mux.HandleFunc(http.MethodGet+" /healthz", h.handleHealthz)
	mux.HandleFunc(http.MethodPost+" /api/classify", h.handleClassify)
	mux.HandleFunc(http.MethodPost+" /api/scrape", h.handleScrape)
	mux.HandleFunc(http.MethodGet+" /api/classifications", h.handleList)
	mux.HandleFunc(http.MethodGet+" /api/classifications/{recordID}", h.handleGet)
	mux.HandleFunc(http.MethodGet+" /api/stats", h.handleStats)
	mux.HandleFunc(http.MethodGet+" /api/taxonomy", h.handleTaxonomy)
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)
	locale, persist := resolveLocale(r)
	if persist {
		setLanguageCookie(w, locale)
	}

	history, err := h.service.History(ctx, storage.ListFilter{Limit: recentHistoryLimit})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	view := newIndexView(locale, history, stats)
	if err := templates.ExecuteTemplate(w, "index.html", view); err != nil {
		http.Error(w, "render failed", http.StatusInternalServerError)
	}
}

func (h *handler) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleClassify accepts either a multipart upload (field "image") or a
// JSON body with an image URL.
func (h *handler) handleClassify(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes+4096)
		file, _, err := r.FormFile("image")
		if err != nil {
			h.writeError(w, r, apperrors.Wrap(apperrors.CodeImageDecodeFailed, "missing image upload", err))
			return
		}
		defer file.Close()

		var buf bytes.Buffer
		if _, err := io.Copy(&buf, io.LimitReader(file, maxUploadBytes+1)); err != nil {
			h.writeError(w, r, apperrors.Wrap(apperrors.CodeImageDecodeFailed, "read image upload", err))
			return
		}
		if buf.Len() > maxUploadBytes {
			h.writeError(w, r, apperrors.New(apperrors.CodeImageTooLarge, "uploaded image exceeds size limit"))
			return
		}

		result, err := h.service.ClassifyBytes(ctx, buf.Bytes(), "")
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		_ = httpx.WriteJSON(w, http.StatusOK, result)
		return
	}

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := h.service.ClassifyURL(ctx, body.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) handleScrape(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)

	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(body.URL) == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "url is required")
		return
	}

	figures, err := h.service.ScrapePage(ctx, body.URL)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"page_url": body.URL,
		"figures":  figures,
	})
}

func (h *handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)

	filter := storage.ListFilter{}
	if classValue := strings.TrimSpace(r.URL.Query().Get("class")); classValue != "" {
		class, ok := domain.ParseClass(classValue)
		if !ok {
			_ = httpx.WriteJSONError(w, http.StatusBadRequest, fmt.Sprintf("unknown class %q", classValue))
			return
		}
		filter.Class = class
	}
	filter.Limit = queryInt(r, "limit")
	filter.Offset = queryInt(r, "offset")

	results, err := h.service.History(ctx, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"classifications": results})
}

func (h *handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)

	recordID := strings.TrimSpace(r.PathValue("recordID"))
	if recordID == "" {
		_ = httpx.WriteJSONError(w, http.StatusBadRequest, "record id is required")
		return
	}
	result, err := h.service.Get(ctx, recordID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, result)
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := httpx.RequestContext(r)

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	payload := make([]map[string]any, 0, len(stats))
	for _, stat := range stats {
		payload = append(payload, map[string]any{
			"class": stat.Class,
			"label": stat.Class.Label(),
			"count": stat.Count,
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"classes": payload})
}

func (h *handler) handleTaxonomy(w http.ResponseWriter, _ *http.Request) {
	payload := make([]map[string]any, 0, len(domain.All()))
	for _, class := range domain.All() {
		payload = append(payload, map[string]any{
			"class":    class,
			"label":    class.Label(),
			"emoji":    class.Emoji(),
			"brief":    class.Brief(),
			"keywords": class.Keywords(),
		})
	}
	_ = httpx.WriteJSON(w, http.StatusOK, map[string]any{"taxonomy": payload})
}

// writeError renders a domain error with a message localized for the
// requester. Unknown codes fall through to the raw error mapping.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := apperrors.CodeOf(err)
	if code == apperrors.CodeUnknown {
		httpx.WriteError(w, err)
		return
	}

	locale, _ := resolveLocale(r)
	var metadata map[string]string
	var domainErr *apperrors.Error
	if stderrors.As(err, &domainErr) {
		metadata = domainErr.Metadata
	}
	message := errori18n.GetCatalog(locale).Format(string(code), metadata)
	_ = httpx.WriteJSON(w, code.HTTPStatus(), map[string]any{
		"error": message,
		"code":  string(code),
	})
}

func queryInt(r *http.Request, key string) int {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return 0
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		return 0
	}
	return parsed
}
