// Package identity adapts external identity services to session.IdentityValidator.
package identity

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	kratos "github.com/ory/kratos-client-go"

	"donorhub/internal/session"
)

// KratosCookieName is the session cookie set by Ory Kratos.
const KratosCookieName = "ory_kratos_session"

// KratosGateway validates Kratos session cookies through the frontend API.
type KratosGateway struct {
	client    *kratos.APIClient
	publicURL string
	timeout   time.Duration
}

// NewKratosGateway creates a gateway with a tuned HTTP transport. timeout
// bounds each whoami round trip.
func NewKratosGateway(publicURL string, timeout time.Duration) *KratosGateway {
	configuration := kratos.NewConfiguration()
	configuration.Servers = []kratos.ServerConfiguration{
		{URL: publicURL},
	}
	configuration.HTTPClient = &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &KratosGateway{
		client:    kratos.NewAPIClient(configuration),
		publicURL: strings.TrimRight(publicURL, "/"),
		timeout:   timeout,
	}
}

// ValidateSession resolves a Kratos session cookie value to an identity.
func (g *KratosGateway) ValidateSession(ctx context.Context, cookieValue string) (*session.Identity, error) {
	if cookieValue == "" {
		return nil, session.ErrSessionNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cookie := fmt.Sprintf("%s=%s", KratosCookieName, cookieValue)
	sess, resp, err := g.client.FrontendAPI.ToSession(ctx).Cookie(cookie).Execute()
	if err != nil {
		if resp != nil {
			switch resp.StatusCode {
			case http.StatusUnauthorized:
				return nil, session.ErrAuthFailed
			case http.StatusForbidden:
				return nil, session.ErrSessionInactive
			}
			return nil, fmt.Errorf("%w: kratos returned status %d", session.ErrIdentityUnavailable, resp.StatusCode)
		}
		return nil, fmt.Errorf("%w: %w", session.ErrIdentityUnavailable, err)
	}

	if sess.Active != nil && !*sess.Active {
		return nil, session.ErrSessionInactive
	}
	if sess.Identity == nil {
		return nil, session.ErrMissingIdentity
	}

	email := ""
	if traits, ok := sess.Identity.Traits.(map[string]interface{}); ok {
		if emailStr, ok := traits["email"].(string); ok {
			email = emailStr
		}
	}

	return &session.Identity{
		ID:    sess.Identity.Id,
		Email: email,
	}, nil
}

// LoginURL is the Kratos browser login flow that returns to returnTo.
func (g *KratosGateway) LoginURL(returnTo string) string {
	u := g.publicURL + "/self-service/login/browser"
	if returnTo != "" {
		u += "?return_to=" + url.QueryEscape(returnTo)
	}
	return u
}

// LogoutURL creates a browser logout flow for the session and returns the URL
// the browser must visit to end it at Kratos.
func (g *KratosGateway) LogoutURL(ctx context.Context, cookieValue, returnTo string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	req := g.client.FrontendAPI.CreateBrowserLogoutFlow(ctx).
		Cookie(fmt.Sprintf("%s=%s", KratosCookieName, cookieValue))
	if returnTo != "" {
		req = req.ReturnTo(returnTo)
	}
	flow, resp, err := req.Execute()
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return "", session.ErrSessionNotFound
		}
		return "", fmt.Errorf("%w: create logout flow: %w", session.ErrIdentityUnavailable, err)
	}
	return flow.LogoutUrl, nil
}
