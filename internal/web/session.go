package web

import (
	"net/http"
	"net/mail"
	"strings"

	"donorhub/internal/guard"
	"donorhub/internal/session"
)

// handleLoginPage shows the dev sign-in form, or hands the browser to the
// identity service's login flow. Signed-in viewers go straight on.
func (h *Handler) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	next := guard.SafeNext(r.URL.Query().Get("next"), "/dashboard")

	if snap, _ := session.FromContext(r.Context()); snap.HasIdentity() {
		http.Redirect(w, r, next, http.StatusSeeOther)
		return
	}
	if h.flows != nil {
		http.Redirect(w, r, h.flows.LoginURL(absoluteURL(r, next)), http.StatusSeeOther)
		return
	}

	data := base(r, "Sign in")
	data.DevLogin = true
	data.Next = next
	if r.URL.Query().Has("next") {
		data.Notice = noticeSignIn
	}
	h.render(w, r, http.StatusOK, "login", data)
}

// handleDevSignIn issues a development session token for the submitted
// e-mail address. Any session the browser already held is signed out first.
func (h *Handler) handleDevSignIn(w http.ResponseWriter, r *http.Request) {
	if h.devTokens == nil {
		http.NotFound(w, r)
		return
	}
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		h.logger.WarnContext(ctx, "invalid sign-in form",
			"request_id", requestID(r),
			"error", err,
		)
		h.metrics.IncrementSignIn("invalid")
		h.renderLoginError(w, r, "/dashboard")
		return
	}
	next := guard.SafeNext(r.PostForm.Get("next"), "/dashboard")

	email := strings.TrimSpace(r.PostForm.Get("email"))
	if _, err := mail.ParseAddress(email); err != nil {
		h.metrics.IncrementSignIn("invalid")
		h.renderLoginError(w, r, next)
		return
	}

	token, identityID, err := h.devTokens.Issue(email)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to issue dev session",
			"request_id", requestID(r),
			"error", err,
		)
		h.metrics.IncrementSignIn("error")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	if previous := h.credential(r); previous != "" {
		h.sessions.SignOut(previous)
	}
	http.SetCookie(w, h.sessionCookie(token, int(h.cookieTTL.Seconds())))

	h.metrics.IncrementSignIn("ok")
	h.logger.InfoContext(ctx, "dev sign-in",
		"request_id", requestID(r),
		"identity_id", identityID,
	)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) renderLoginError(w http.ResponseWriter, r *http.Request, next string) {
	data := base(r, "Sign in")
	data.DevLogin = true
	data.Next = next
	data.Notice = "Enter a valid e-mail address."
	h.render(w, r, http.StatusBadRequest, "login", data)
}

// handleSignOut clears the session at its source, the dev cookie or the
// identity service's logout flow, and only then ends it for every open page.
// A logout flow that cannot be created leaves the session signed in.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	credential := h.credential(r)
	if credential == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	if h.flows == nil {
		h.sessions.SignOut(credential)
		http.SetCookie(w, h.sessionCookie("", -1))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	logoutURL, err := h.flows.LogoutURL(ctx, credential, absoluteURL(r, "/"))
	if err != nil {
		h.logger.WarnContext(ctx, "failed to create logout flow",
			"request_id", requestID(r),
			"error", err,
		)
		data := base(r, "Home")
		data.Notice = noticeSignOutFailed
		h.render(w, r, http.StatusServiceUnavailable, "home", data)
		return
	}
	h.sessions.SignOut(credential)
	http.Redirect(w, r, logoutURL, http.StatusSeeOther)
}

func (h *Handler) credential(r *http.Request) string {
	c, err := r.Cookie(h.cookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

func (h *Handler) sessionCookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     h.cookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   h.secureCookies,
		SameSite: http.SameSiteLaxMode,
	}
}

// absoluteURL resolves a local path against the request's host, honouring a
// proxy's X-Forwarded-Proto.
func absoluteURL(r *http.Request, path string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host + path
}
