package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"
	"slices"

	"github.com/benbjohnson/hashfs"

	"churchadmin/internal/auth"
	"churchadmin/internal/core"
	"churchadmin/internal/log"
	"churchadmin/internal/table"
	appweb "churchadmin/web"
)

func parseTemplates(assets *hashfs.FS) (*template.Template, error) {
	funcs := template.FuncMap{
		// asset returns the fingerprinted URL of a static file.
		"asset": func(name string) string { return "/static/" + assets.HashName(name) },
		"add":   func(a, b int) int { return a + b },
		"sub":   func(a, b int) int { return a - b },
		"pages": func(n int) []int {
			out := make([]int, n)
			for i := range n {
				out[i] = i + 1
			}
			return out
		},
		"textFilter":   func(c table.Column) bool { return c.Filter == table.FilterText },
		"selectFilter": func(c table.Column) bool { return c.Filter == table.FilterSelect },
		"contains":     func(list []string, v string) bool { return slices.Contains(list, v) },
	}
	t, err := template.New("console").Funcs(funcs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

type navItem struct {
	Label  string
	URL    string
	Active bool
}

// pageData is the envelope of every full page. Partials get their view
// directly.
type pageData struct {
	Title string
	User  *auth.Session
	Nav   []navItem
	Data  any
}

func (s *Server) page(r *http.Request, title string, active core.Kind, data any) pageData {
	p := pageData{Title: title, Data: data}
	sess, ok := auth.FromContext(r.Context())
	if !ok {
		return p
	}
	p.User = sess
	for _, k := range core.Kinds() {
		if k == core.KindUser && !sess.CanManage(k) {
			continue
		}
		p.Nav = append(p.Nav, navItem{Label: k.Plural(), URL: "/" + k.Slug(), Active: k == active})
	}
	return p
}

// respond executes name into a buffer first so a template failure never
// leaves a half-written body.
func (s *Server) respond(w http.ResponseWriter, r *http.Request, b *HTMXResponseBuilder, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(),
			"Template execution failed", "template", name, log.FieldError, err)
		InternalServerError("The page could not be rendered").Write(w)
		return
	}
	b.BodyHTML(buf.String()).Write(w)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	s.respond(w, r, NewHTMXResponse().Status(status), name, data)
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
