package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/internal/session"
)

func kratosServer(t *testing.T, status int, body map[string]any) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sessions/whoami", r.URL.Path)
		assert.Contains(t, r.Header.Get("Cookie"), "ory_kratos_session=")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if body != nil {
			_ = json.NewEncoder(w).Encode(body)
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestKratosGateway_ValidateSession(t *testing.T) {
	ctx := context.Background()

	t.Run("active session returns identity", func(t *testing.T) {
		server := kratosServer(t, http.StatusOK, map[string]any{
			"id":     "session-123",
			"active": true,
			"identity": map[string]any{
				"id":         "donor-456",
				"schema_id":  "default",
				"schema_url": "http://kratos/schemas/default.json",
				"traits":     map[string]any{"email": "donor@example.org"},
			},
		})

		gw := NewKratosGateway(server.URL, 5*time.Second)
		identity, err := gw.ValidateSession(ctx, "valid-session")

		require.NoError(t, err)
		assert.Equal(t, "donor-456", identity.ID)
		assert.Equal(t, "donor@example.org", identity.Email)
	})

	t.Run("inactive session", func(t *testing.T) {
		server := kratosServer(t, http.StatusOK, map[string]any{
			"id":     "session-123",
			"active": false,
		})

		gw := NewKratosGateway(server.URL, 5*time.Second)
		identity, err := gw.ValidateSession(ctx, "expired-session")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, session.ErrSessionInactive)
	})

	t.Run("unauthorized maps to auth failed", func(t *testing.T) {
		server := kratosServer(t, http.StatusUnauthorized, map[string]any{
			"error": map[string]any{"code": 401, "status": "Unauthorized"},
		})

		gw := NewKratosGateway(server.URL, 5*time.Second)
		_, err := gw.ValidateSession(ctx, "bad-session")

		assert.ErrorIs(t, err, session.ErrAuthFailed)
	})

	t.Run("server error maps to unavailable", func(t *testing.T) {
		server := kratosServer(t, http.StatusInternalServerError, nil)

		gw := NewKratosGateway(server.URL, 5*time.Second)
		_, err := gw.ValidateSession(ctx, "any")

		assert.ErrorIs(t, err, session.ErrIdentityUnavailable)
	})

	t.Run("unreachable server maps to unavailable", func(t *testing.T) {
		gw := NewKratosGateway("http://127.0.0.1:1", 500*time.Millisecond)
		_, err := gw.ValidateSession(ctx, "any")

		assert.ErrorIs(t, err, session.ErrIdentityUnavailable)
	})

	t.Run("empty cookie is not found", func(t *testing.T) {
		gw := NewKratosGateway("http://unused", 5*time.Second)
		identity, err := gw.ValidateSession(ctx, "")

		assert.Nil(t, identity)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}

func TestKratosGateway_LoginURL(t *testing.T) {
	gw := NewKratosGateway("http://kratos.local:4433/", time.Second)

	assert.Equal(t, "http://kratos.local:4433/self-service/login/browser", gw.LoginURL(""))
	assert.Equal(t,
		"http://kratos.local:4433/self-service/login/browser?return_to=http%3A%2F%2Fdonorhub.local%2Fadmin",
		gw.LoginURL("http://donorhub.local/admin"),
	)
}

func TestKratosGateway_LogoutURL(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the flow logout url", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/self-service/logout/browser", r.URL.Path)
			assert.Equal(t, "http://donorhub.local/", r.URL.Query().Get("return_to"))
			assert.Contains(t, r.Header.Get("Cookie"), "ory_kratos_session=abc")
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"logout_token": "tok",
				"logout_url":   "http://kratos.local/self-service/logout?token=tok",
			})
		}))
		t.Cleanup(server.Close)

		gw := NewKratosGateway(server.URL, time.Second)
		logoutURL, err := gw.LogoutURL(ctx, "abc", "http://donorhub.local/")

		require.NoError(t, err)
		assert.Equal(t, "http://kratos.local/self-service/logout?token=tok", logoutURL)
	})

	t.Run("no session", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"code": 401}})
		}))
		t.Cleanup(server.Close)

		_, err := NewKratosGateway(server.URL, time.Second).LogoutURL(ctx, "gone", "")
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})
}
