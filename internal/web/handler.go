// Package web serves the DonorHub page tree. Which pages a viewer may see is
// decided by the route access guard; handlers only render.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"donorhub/internal/guard"
	"donorhub/internal/platform/metrics"
	"donorhub/internal/platform/middleware"
	"donorhub/pkg/requestcontext"
)

// Sessions is the part of the session provider the pages drive.
type Sessions interface {
	SignOut(credential string)
	RefreshIdentity(ctx context.Context, identityID string) int
}

// RoleAdmin manages administrator membership.
type RoleAdmin interface {
	Grant(ctx context.Context, identityID string) error
	Revoke(ctx context.Context, identityID string) error
	Administrators(ctx context.Context) ([]string, error)
}

// DevIssuer issues development session tokens.
type DevIssuer interface {
	Issue(email string) (token string, identityID string, err error)
}

// BrowserFlows hands sign-in and sign-out to a hosted identity service.
type BrowserFlows interface {
	LoginURL(returnTo string) string
	LogoutURL(ctx context.Context, cookieValue, returnTo string) (string, error)
}

// RouteRequirements is the static table of protected routes.
var RouteRequirements = map[string]guard.Requirement{
	"/dashboard":   guard.RequireAuthenticated,
	"/admin":       guard.RequireAdministrator,
	"/admin/roles": guard.RequireAdministrator,
}

// Config wires a Handler. Exactly one of DevTokens and Flows is set.
type Config struct {
	Guard    *guard.Middleware
	Stream   http.Handler
	Sessions Sessions
	Roles    RoleAdmin

	DevTokens DevIssuer
	Flows     BrowserFlows

	CookieName    string
	CookieTTL     time.Duration
	SecureCookies bool

	// SignInThrottle and RoleChangeThrottle wrap the matching form posts.
	// Nil means unthrottled.
	SignInThrottle     func(http.Handler) http.Handler
	RoleChangeThrottle func(http.Handler) http.Handler

	PageTimeout time.Duration
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// Handler serves pages and the session endpoints behind them.
type Handler struct {
	guard    *guard.Middleware
	stream   http.Handler
	sessions Sessions
	roles    RoleAdmin

	devTokens DevIssuer
	flows     BrowserFlows

	cookieName    string
	cookieTTL     time.Duration
	secureCookies bool

	signInThrottle     func(http.Handler) http.Handler
	roleChangeThrottle func(http.Handler) http.Handler

	pageTimeout time.Duration
	metrics     *metrics.Metrics
	logger      *slog.Logger
	pages       pages
}

func New(cfg Config) (*Handler, error) {
	if cfg.Guard == nil || cfg.Sessions == nil || cfg.Roles == nil {
		return nil, errors.New("web: guard, sessions and roles are required")
	}
	if (cfg.DevTokens == nil) == (cfg.Flows == nil) {
		return nil, errors.New("web: configure exactly one of dev tokens and browser flows")
	}
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 30 * time.Second
	}
	return &Handler{
		guard:         cfg.Guard,
		stream:        cfg.Stream,
		sessions:      cfg.Sessions,
		roles:         cfg.Roles,
		devTokens:     cfg.DevTokens,
		flows:         cfg.Flows,
		cookieName:    cfg.CookieName,
		cookieTTL:     cfg.CookieTTL,
		secureCookies: cfg.SecureCookies,

		signInThrottle:     orPassthrough(cfg.SignInThrottle),
		roleChangeThrottle: orPassthrough(cfg.RoleChangeThrottle),

		pageTimeout: cfg.PageTimeout,
		metrics:     cfg.Metrics,
		logger:      cfg.Logger,
		pages:       p,
	}, nil
}

// Register registers the page routes with the chi router. The guard stream is
// long-lived and sits outside the page timeout.
func (h *Handler) Register(r chi.Router) {
	r.Handle("/static/*", http.StripPrefix("/static/", staticFiles()))
	if h.stream != nil {
		r.Method(http.MethodGet, "/guard/stream", h.stream)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(h.pageTimeout))

		r.With(h.guard.Attach).Get("/", h.handleHome)
		r.With(h.guard.Attach).Get("/login", h.handleLoginPage)
		r.With(h.signInThrottle).Post("/login", h.handleDevSignIn)
		r.Post("/logout", h.handleSignOut)

		r.With(h.require("/dashboard")).Get("/dashboard", h.handleDashboard)
		r.With(h.require("/admin")).Get("/admin", h.handleAdmin)
		r.With(h.require("/admin/roles"), h.roleChangeThrottle).Post("/admin/roles", h.handleChangeRole)
	})
}

func (h *Handler) require(pattern string) func(http.Handler) http.Handler {
	req, ok := RouteRequirements[pattern]
	if !ok {
		panic("web: no requirement declared for " + pattern)
	}
	return h.guard.Require(req)
}

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return mw
}

func requestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
