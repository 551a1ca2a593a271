package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"donorhub/internal/session"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// staticFiles serves the embedded static directory.
func staticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

var pageNames = []string{"home", "login", "dashboard", "admin"}

// pages holds one template set per page, each combining the layout with the
// page's content block.
type pages map[string]*template.Template

func parsePages() (pages, error) {
	out := make(pages, len(pageNames))
	for _, name := range pageNames {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", name, err)
		}
		out[name] = t
	}
	return out, nil
}

// pageData is the view model shared by every page.
type pageData struct {
	Title   string
	Viewer  *session.Identity
	IsAdmin bool
	Notice  string
	// Guard names the requirement the browser re-checks over the guard
	// stream. Empty for public pages.
	Guard string
	Now   time.Time

	Next           string
	DevLogin       bool
	Administrators []string
}

func viewer(s session.Snapshot) (*session.Identity, bool) {
	if !s.HasIdentity() {
		return nil, false
	}
	return s.Identity, s.Role == session.RoleAdministrator
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	ctx := r.Context()
	t, ok := h.pages[name]
	if !ok {
		h.logger.ErrorContext(ctx, "unknown page template", "page", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(ctx, "failed to render page",
			"page", name,
			"error", err,
			"request_id", requestID(r),
		)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
