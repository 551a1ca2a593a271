package guard

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"donorhub/internal/session"
	"donorhub/pkg/requestcontext"
)

// SessionResolver turns a request credential into a resolved snapshot.
type SessionResolver interface {
	Resolve(ctx context.Context, credential string) session.Snapshot
}

// CredentialFunc extracts the session credential from a request.
type CredentialFunc func(*http.Request) string

// CookieCredential reads the credential from the named cookie.
func CookieCredential(name string) CredentialFunc {
	return func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	}
}

// Middleware gates server-rendered routes.
type Middleware struct {
	guard      *Guard
	resolver   SessionResolver
	credential CredentialFunc
	logger     *slog.Logger
}

func NewMiddleware(g *Guard, resolver SessionResolver, credential CredentialFunc, logger *slog.Logger) *Middleware {
	return &Middleware{
		guard:      g,
		resolver:   resolver,
		credential: credential,
		logger:     logger,
	}
}

// resolve resolves the request's session within the bounded wait. The result
// is always resolved: an expired wait is a failed resolution.
func (m *Middleware) resolve(r *http.Request) session.Snapshot {
	ctx, cancel := context.WithTimeout(r.Context(), m.guard.resolveTimeout)
	defer cancel()

	snap := m.resolver.Resolve(ctx, m.credential(r))
	if !snap.Resolved {
		snap = session.Failed(session.ErrResolveTimeout)
	}
	return snap
}

// Attach resolves the session and stores it in the request context without
// gating. Public pages use it to tailor navigation.
func (m *Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap := m.resolve(r)
		ctx := session.WithSnapshot(r.Context(), snap)
		if snap.HasIdentity() {
			ctx = requestcontext.WithIdentityID(ctx, snap.IdentityID())
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Require serves next only when the request's session satisfies req. Denied
// requests are redirected with 303 See Other to the fallback location;
// anonymous viewers are sent to login with a next parameter.
func (m *Middleware) Require(req Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			snap := m.resolve(r)
			v := Evaluate(snap, req)
			m.guard.metrics.IncrementVerdict("page", req.String(), v.Decision.String(), string(v.Reason))

			if v.Decision == Granted {
				ctx = session.WithSnapshot(ctx, snap)
				ctx = requestcontext.WithIdentityID(ctx, snap.IdentityID())
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			location := m.guard.fallbacks.Location(v)
			if v.Reason == ReasonUnauthenticated {
				location = withNext(location, r.URL.RequestURI())
			}

			attrs := []any{
				"request_id", requestcontext.RequestID(ctx),
				"requirement", req.String(),
				"reason", string(v.Reason),
				"path", r.URL.Path,
			}
			if snap.Err != nil {
				attrs = append(attrs, "error", snap.Err)
				m.logger.ErrorContext(ctx, "access denied - unable to verify session", attrs...)
			} else {
				m.logger.WarnContext(ctx, "access denied", attrs...)
			}
			http.Redirect(w, r, location, http.StatusSeeOther)
		})
	}
}

func withNext(location, next string) string {
	u, err := url.Parse(location)
	if err != nil {
		return location
	}
	q := u.Query()
	q.Set("next", next)
	u.RawQuery = q.Encode()
	return u.String()
}

// SafeNext returns next if it is a local absolute path, otherwise fallback.
// It keeps login redirects on this site.
func SafeNext(next, fallback string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return u.RequestURI()
}
