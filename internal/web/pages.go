package web

import (
	"net/http"

	"donorhub/internal/guard"
	"donorhub/internal/session"
	"donorhub/pkg/requestcontext"
)

const (
	noticeUnverified = "We could not verify your access right now. Please try again in a moment."
	noticeSignIn     = "Please sign in to continue."

	noticeSignOutFailed = "We could not sign you out right now. Please try again."
)

// base fills the fields every page shares from the request context.
func base(r *http.Request, title string) pageData {
	snap, _ := session.FromContext(r.Context())
	identity, isAdmin := viewer(snap)
	return pageData{
		Title:   title,
		Viewer:  identity,
		IsAdmin: isAdmin,
		Now:     requestcontext.Now(r.Context()),
	}
}

func (h *Handler) handleHome(w http.ResponseWriter, r *http.Request) {
	data := base(r, "Home")
	if r.URL.Query().Get("access") == guard.UnverifiedNotice {
		data.Notice = noticeUnverified
	}
	h.render(w, r, http.StatusOK, "home", data)
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	data := base(r, "My donations")
	data.Guard = RouteRequirements["/dashboard"].String()
	h.render(w, r, http.StatusOK, "dashboard", data)
}
