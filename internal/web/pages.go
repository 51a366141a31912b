package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"eventboard/internal/datetime"
	"eventboard/internal/detail"
	"eventboard/internal/listing"
	appLog "eventboard/internal/log"
	"eventboard/internal/model"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageNames = []string{"listing", "detail", "error"}

type pages struct {
	byName map[string]*template.Template
}

// pageData is the root value handed to every template.
type pageData struct {
	Title        string
	Notification *model.Notification
	Listing      *listing.View
	Detail       *detail.View
	Status       int
	Message      string
	RequestID    string
}

func loadPages(f *datetime.Formatter) (*pages, error) {
	p := &pages{byName: map[string]*template.Template{}}
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs(f)).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		p.byName[name] = t
	}
	return p, nil
}

// render executes a page into a buffer first so a template failure never
// leaves a half-written response.
func (p *pages) render(w http.ResponseWriter, name string, status int, data pageData) {
	t, ok := p.byName[name]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	data.Status = status
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		appLog.Error("template render failed", err, "page", name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

var printer = message.NewPrinter(language.AmericanEnglish)

func templateFuncs(f *datetime.Formatter) template.FuncMap {
	return template.FuncMap{
		"imgsrc":        imageSource,
		"firstCategory": firstCategory,
		"categoryShown": categoryShown,
		"inputTime":     inputTime(f),
		"countLabel":    countLabel,
		"errorText":     errorText,
	}
}

// imageSource lets image data URLs and http(s) links through html/template's
// URL sanitizer; anything else renders as an empty src.
func imageSource(s string) template.URL {
	switch {
	case strings.HasPrefix(s, "data:image/"),
		strings.HasPrefix(s, "https://"),
		strings.HasPrefix(s, "http://"):
		return template.URL(s)
	default:
		return ""
	}
}

func firstCategory(ids model.CategoryIDs) string {
	if len(ids) == 0 {
		return ""
	}
	return ids[0].String()
}

// keepCategories is the select value that leaves an event's stored category
// list as it is.
const keepCategories = "keep"

// categoryShown picks the edit form's initial category option: the single
// catalog category, "" when there is none, or keepCategories for a list the
// single-select cannot show.
func categoryShown(ids model.CategoryIDs, catalog []model.Category) string {
	switch len(ids) {
	case 0:
		return ""
	case 1:
		for _, c := range catalog {
			if c.ID == ids[0] {
				return c.ID.String()
			}
		}
	}
	return keepCategories
}

// inputTime converts a stored time to the datetime-local input format in the
// display zone. Values that do not parse are passed through unchanged.
func inputTime(f *datetime.Formatter) func(string) string {
	return func(s string) string {
		t, err := f.Parse(s)
		if err != nil {
			return s
		}
		return t.In(f.Location()).Format("2006-01-02T15:04")
	}
}

func countLabel(shown, total int) string {
	if shown == total {
		return printer.Sprintf("%d events", total)
	}
	return printer.Sprintf("Showing %d of %d events", shown, total)
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
