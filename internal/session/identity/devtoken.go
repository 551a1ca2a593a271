package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"donorhub/internal/session"
)

// DevCookieName carries development session tokens.
const DevCookieName = "donorhub_dev_session"

// devNamespace derives stable identity IDs from e-mail addresses so a dev
// donor keeps the same ID (and role) across sign-ins.
var devNamespace = uuid.MustParse("6f1b8f0e-3c55-4b8e-9a51-4a0d2f7c9e10")

// DevClaims are the claims of a development session token.
type DevClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// DevTokens issues and verifies HS256 development session tokens. It stands in
// for the hosted identity service when none is configured.
type DevTokens struct {
	signingKey []byte
	issuer     string
	ttl        time.Duration
	now        func() time.Time
}

func NewDevTokens(signingKey, issuer string, ttl time.Duration) *DevTokens {
	return &DevTokens{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		ttl:        ttl,
		now:        time.Now,
	}
}

// IdentityIDFor returns the stable identity ID for email.
func IdentityIDFor(email string) string {
	return uuid.NewSHA1(devNamespace, []byte(strings.ToLower(strings.TrimSpace(email)))).String()
}

// Issue signs a session token for email and returns it with the identity ID.
func (d *DevTokens) Issue(email string) (string, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", "", errors.New("email required")
	}
	identityID := IdentityIDFor(email)
	now := d.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, DevClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identityID,
			Issuer:    d.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d.ttl)),
			ID:        uuid.NewString(),
		},
	})
	signed, err := token.SignedString(d.signingKey)
	if err != nil {
		return "", "", fmt.Errorf("sign dev session token: %w", err)
	}
	return signed, identityID, nil
}

// ValidateSession verifies a dev token. The context is unused; verification is local.
func (d *DevTokens) ValidateSession(_ context.Context, token string) (*session.Identity, error) {
	if token == "" {
		return nil, session.ErrSessionNotFound
	}

	claims := &DevClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return d.signingKey, nil
	},
		jwt.WithIssuer(d.issuer),
		jwt.WithTimeFunc(d.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, session.ErrSessionInactive
		}
		return nil, fmt.Errorf("%w: %w", session.ErrAuthFailed, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, session.ErrMissingIdentity
	}

	return &session.Identity{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}
