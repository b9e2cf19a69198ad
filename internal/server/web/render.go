package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/and161185/nimbly/internal/model"
	"github.com/and161185/nimbly/internal/prefs"
	"github.com/and161185/nimbly/internal/present"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{
	"home", "auth", "dashboard", "receipts", "receipt", "upload", "insights", "profile", "notfound", "error",
}

type views struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"store":    present.StoreName,
	"amount":   present.Amount,
	"money":    present.Money,
	"date":     present.Date,
	"status":   present.StatusLabel,
	"initials": present.Initials,
	"qty": func(d *model.Decimal) string {
		if d == nil {
			return "1"
		}
		return strconv.FormatFloat(d.Float(), 'f', -1, 64)
	},
}

func loadViews() (*views, error) {
	layout, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	v := &views{pages: make(map[string]*template.Template, len(pages))}
	for _, name := range pages {
		t, err := template.Must(layout.Clone()).ParseFS(templateFS, "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		v.pages[name] = t
	}
	return v, nil
}

// pageData is what every template receives.
type pageData struct {
	Title   string
	Path    string
	User    *model.User
	Theme   prefs.Theme
	Sidebar bool
	Data    any
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data any) {
	pd := pageData{Title: title, Path: r.URL.Path, Theme: prefs.Light, Data: data}
	if u, ok := UserFrom(r.Context()); ok {
		pd.User = u
	}
	if b := browserFrom(r.Context()); b != nil {
		if th, err := b.prefs.Theme(r.Context()); err == nil {
			pd.Theme = th
		}
		if c, err := b.prefs.SidebarCollapsed(r.Context()); err == nil {
			pd.Sidebar = c
		}
	}

	t, ok := s.views.pages[page]
	if !ok {
		s.log.Error("unknown page", zap.String("page", page))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.log.Error("render", zap.String("page", page), zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
