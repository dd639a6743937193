// Package view renders the server-side HTML pages and the small fragments
// returned to in-page form submissions.
package view

import (
	"database/sql/driver"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/community-commons/internal/model"
	"github.com/iliyamo/community-commons/internal/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

// Page is the data every full page receives.  Data holds the page specific
// part.
type Page struct {
	Title     string
	Lang      string
	Languages []string
	User      *model.User
	Flashes   []session.Flash
	T         func(string) string
	Data      interface{}
}

// Renderer implements echo.Renderer.  Each page is parsed together with the
// shared layout; "t" is rebound per render to the request's translator.
type Renderer struct {
	pages map[string]*template.Template
}

var baseFuncs = template.FuncMap{
	"t":    func(s string) string { return s },
	"date": func(t time.Time) string { return t.UTC().Format("2 Jan 2006 15:04") },
	"rating": func(r float64) string {
		return fmt.Sprintf("%.1f", r)
	},
	"ns": func(v interface{}) string {
		switch x := v.(type) {
		case string:
			return x
		case driver.Valuer:
			if val, err := x.Value(); err == nil && val != nil {
				return fmt.Sprint(val)
			}
		}
		return ""
	},
}

// NewRenderer parses all embedded page templates.
func NewRenderer() (*Renderer, error) {
	files, err := fs.Glob(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template, len(files))}
	for _, f := range files {
		base := path.Base(f)
		if base == "layout.html" {
			continue
		}
		t, err := template.New(base).Funcs(baseFuncs).ParseFS(templatesFS, "templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", base, err)
		}
		r.pages[strings.TrimSuffix(base, ".html")] = t
	}
	return r, nil
}

// Render executes the named page inside the layout.
func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("view: unknown page %q", name)
	}
	tr := baseFuncs["t"].(func(string) string)
	if p, ok := data.(*Page); ok && p.T != nil {
		tr = p.T
	}
	clone, err := t.Clone()
	if err != nil {
		return err
	}
	clone.Funcs(template.FuncMap{"t": tr})
	return clone.ExecuteTemplate(w, "layout", data)
}

// ErrorFragment renders msg as an inline error paragraph.
func ErrorFragment(msg string) string {
	return `<p class="text-red-500">` + template.HTMLEscapeString(msg) + `</p>`
}

// SuccessFragment renders msg as an inline success paragraph.
func SuccessFragment(msg string) string {
	return `<p class="text-green-500">` + template.HTMLEscapeString(msg) + `</p>`
}
