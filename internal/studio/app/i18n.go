package app

import (
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"
)

const (
	// langParam is the query parameter used to select a language.
	langParam = "lang"
	// langCookieName stores the visitor's language preference.
	langCookieName = "fd_lang"
)

var supportedTags = []language.Tag{
	language.MustParse("en-US"),
	language.MustParse("pt-BR"),
}

var tagMatcher = language.NewMatcher(supportedTags)

// resolveLocale determines the catalog locale for the request. The bool
// reports whether the lang query param should be persisted as a cookie.
func resolveLocale(r *http.Request) (string, bool) {
	if r == nil {
		return supportedTags[0].String(), false
	}

	if langValue := strings.TrimSpace(r.URL.Query().Get(langParam)); langValue != "" {
		if locale, ok := parseLocale(langValue); ok {
			return locale, true
		}
	}

	if cookie, err := r.Cookie(langCookieName); err == nil {
		if locale, ok := parseLocale(cookie.Value); ok {
			return locale, false
		}
	}

	if accept := strings.TrimSpace(r.Header.Get("Accept-Language")); accept != "" {
		if tags, _, err := language.ParseAcceptLanguage(accept); err == nil {
			_, index, _ := tagMatcher.Match(tags...)
			return supportedTags[index].String(), false
		}
	}

	return supportedTags[0].String(), false
}

// setLanguageCookie persists the selected language on the response.
func setLanguageCookie(w http.ResponseWriter, locale string) {
	if w == nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     langCookieName,
		Value:    locale,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

func parseLocale(value string) (string, bool) {
	parsed, err := language.Parse(value)
	if err != nil {
		return "", false
	}
	for _, tag := range supportedTags {
		if tag.String() == parsed.String() {
			return tag.String(), true
		}
	}
	return "", false
}
