package guard

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/internal/session"
	"donorhub/pkg/requestcontext"
)

const testCookie = "donorhub_test_session"

// fakeResolver answers from a fixed table keyed by credential.
type fakeResolver struct {
	answers map[string]session.Snapshot
	block   bool
}

func (f *fakeResolver) Resolve(ctx context.Context, credential string) session.Snapshot {
	if f.block {
		<-ctx.Done()
		return session.Unresolved()
	}
	if snap, ok := f.answers[credential]; ok {
		return snap
	}
	return session.Anonymous()
}

func newTestMiddleware(resolver SessionResolver, timeout time.Duration) *Middleware {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	g := New(logger, WithResolveTimeout(timeout))
	return NewMiddleware(g, resolver, CookieCredential(testCookie), logger)
}

func protectedHandler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		snap, ok := session.FromContext(r.Context())
		require.True(t, ok)
		w.Header().Set("X-Identity", requestcontext.IdentityID(r.Context()))
		w.Header().Set("X-Role", string(snap.Role))
		w.WriteHeader(http.StatusOK)
	})
}

func doRequest(h http.Handler, target, credential string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if credential != "" {
		req.AddCookie(&http.Cookie{Name: testCookie, Value: credential})
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestMiddleware_Require(t *testing.T) {
	resolver := &fakeResolver{answers: map[string]session.Snapshot{
		"donor-cookie": ordinary,
		"admin-cookie": administrator,
		"broken":       session.Failed(session.ErrIdentityUnavailable),
	}}
	mw := newTestMiddleware(resolver, time.Second)

	tests := []struct {
		name       string
		req        Requirement
		target     string
		credential string
		wantStatus int
		wantLoc    string
		wantID     string
	}{
		{"anonymous to login with next", RequireAuthenticated, "/dashboard?tab=history", "", http.StatusSeeOther, "/login?next=%2Fdashboard%3Ftab%3Dhistory", ""},
		{"unknown cookie is anonymous", RequireAdministrator, "/admin", "stale", http.StatusSeeOther, "/login?next=%2Fadmin", ""},
		{"ordinary donor on dashboard", RequireAuthenticated, "/dashboard", "donor-cookie", http.StatusOK, "", "donor-1"},
		{"ordinary donor on admin goes home", RequireAdministrator, "/admin", "donor-cookie", http.StatusSeeOther, "/", ""},
		{"administrator on admin", RequireAdministrator, "/admin", "admin-cookie", http.StatusOK, "", "admin-1"},
		{"resolution failure fails closed", RequireAuthenticated, "/dashboard", "broken", http.StatusSeeOther, "/?access=unverified", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(mw.Require(tt.req)(protectedHandler(t)), tt.target, tt.credential)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLoc, rec.Header().Get("Location"))
			assert.Equal(t, tt.wantID, rec.Header().Get("X-Identity"))
		})
	}
}

func TestMiddleware_RequireBoundedWait(t *testing.T) {
	mw := newTestMiddleware(&fakeResolver{block: true}, 10*time.Millisecond)

	rec := doRequest(mw.Require(RequireAuthenticated)(protectedHandler(t)), "/dashboard", "slow")

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/?access=unverified", rec.Header().Get("Location"))
}

func TestMiddleware_Attach(t *testing.T) {
	resolver := &fakeResolver{answers: map[string]session.Snapshot{"admin-cookie": administrator}}
	mw := newTestMiddleware(resolver, time.Second)

	var got session.Snapshot
	h := mw.Attach(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = session.FromContext(r.Context())
		w.Header().Set("X-Identity", requestcontext.IdentityID(r.Context()))
	}))

	rec := doRequest(h, "/", "admin-cookie")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "admin-1", rec.Header().Get("X-Identity"))
	assert.Equal(t, session.RoleAdministrator, got.Role)

	rec = doRequest(h, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code, "public pages are never gated")
	assert.Empty(t, rec.Header().Get("X-Identity"))
	assert.True(t, got.Resolved)
	assert.False(t, got.HasIdentity())
}

func TestCookieCredential(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, CookieCredential(testCookie)(req))

	req.AddCookie(&http.Cookie{Name: testCookie, Value: "abc"})
	assert.Equal(t, "abc", CookieCredential(testCookie)(req))
}

func TestSafeNext(t *testing.T) {
	tests := map[string]string{
		"/dashboard":           "/dashboard",
		"/admin?tab=roles":     "/admin?tab=roles",
		"":                     "/",
		"dashboard":            "/",
		"//evil.example":       "/",
		"/\\evil.example":      "/",
		"https://evil.example": "/",
	}
	for next, want := range tests {
		assert.Equal(t, want, SafeNext(next, "/"), "next=%q", next)
	}
}

func TestWithNext(t *testing.T) {
	loc := withNext("/login", "/admin?x=1")
	u, err := url.Parse(loc)
	require.NoError(t, err)
	assert.Equal(t, "/login", u.Path)
	assert.Equal(t, "/admin?x=1", u.Query().Get("next"))
}
