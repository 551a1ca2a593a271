package session

import (
	"errors"
	"fmt"

	"donorhub/pkg/platform/sentinel"
)

// Identity service answers. These resolve to an anonymous snapshot.
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInactive = errors.New("session is not active")
	ErrAuthFailed      = errors.New("authentication failed")
	ErrMissingIdentity = errors.New("missing identity in session")
)

// Resolution failures. These resolve to a failed snapshot and deny access.
var (
	ErrIdentityUnavailable = fmt.Errorf("identity provider %w", sentinel.ErrUnavailable)
	ErrCircuitOpen         = fmt.Errorf("%w: circuit open", ErrIdentityUnavailable)
	ErrResolveTimeout      = errors.New("session resolution timed out")
)

// isAnonymousAnswer reports whether err is a definitive "no session" answer
// from the identity service rather than a failure to reach it.
func isAnonymousAnswer(err error) bool {
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrSessionInactive) ||
		errors.Is(err, ErrAuthFailed) ||
		errors.Is(err, ErrMissingIdentity)
}
