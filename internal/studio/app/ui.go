package app

import (
	"embed"
	"html/template"

	"github.com/figdock/figdock/internal/platform/branding"
	"github.com/figdock/figdock/internal/platform/i18n/catalog"
	"github.com/figdock/figdock/internal/studio/domain"
	"github.com/figdock/figdock/internal/studio/storage"
)

//go:embed templates/*.html
var templatesFS embed.FS

//go:embed static/*.css static/*.js
var staticFS embed.FS

var templates = template.Must(template.ParseFS(templatesFS, "templates/*.html"))

// indexView is the data handed to the index template.
type indexView struct {
	AppName string
	Locale  string
	Strings map[string]string
	History []Result
	Stats   []classStat
	Classes []classEntry
}

type classStat struct {
	Class string
	Label string
	Count int
}

type classEntry struct {
	Class string
	Label string
	Brief string
}

// recentHistoryLimit bounds the server-rendered history on the index page.
const recentHistoryLimit = 20

func newIndexView(locale string, history []Result, stats []storage.ClassCount) indexView {
	bundle := catalog.Default()
	strings := map[string]string{}
	for key, value := range bundle.Messages(locale) {
		strings[key] = value
	}

	viewStats := make([]classStat, 0, len(stats))
	for _, stat := range stats {
		viewStats = append(viewStats, classStat{
			Class: string(stat.Class),
			Label: stat.Class.Label(),
			Count: stat.Count,
		})
	}

	classes := make([]classEntry, 0, len(domain.All()))
	for _, class := range domain.All() {
		classes = append(classes, classEntry{
			Class: string(class),
			Label: class.Label(),
			Brief: class.Brief(),
		})
	}

	return indexView{
		AppName: branding.AppName,
		Locale:  locale,
		Strings: strings,
		History: history,
		Stats:   viewStats,
		Classes: classes,
	}
}
