// Package session models the viewer's authentication snapshot and the
// provider that resolves and pushes it to observers.
//
// A Snapshot is tri-state: unresolved, resolved anonymous or authenticated,
// or resolved with a failure. Identity and Role are authoritative only once
// Resolved is true.
package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Role is the authorization level attached to a resolved identity.
type Role string

const (
	RoleNone          Role = "none"
	RoleOrdinary      Role = "ordinary"
	RoleAdministrator Role = "administrator"
)

func (r Role) String() string {
	return string(r)
}

// Identity is a verified viewer as reported by the identity service.
type Identity struct {
	ID    string
	Email string
}

// Snapshot is one observation of the viewer's session.
type Snapshot struct {
	Identity *Identity
	Role     Role
	Resolved bool
	// Err is set when resolution failed; the snapshot is resolved but must
	// not grant anything.
	Err error
	// Version is assigned by the Hub and increases per session key.
	Version uint64
}

// Unresolved is the snapshot observers see while the identity check runs.
func Unresolved() Snapshot {
	return Snapshot{Role: RoleNone}
}

// Anonymous is a resolved snapshot with no identity.
func Anonymous() Snapshot {
	return Snapshot{Role: RoleNone, Resolved: true}
}

// Authenticated is a resolved snapshot for a verified identity.
func Authenticated(identity Identity, role Role) Snapshot {
	if role == "" || role == RoleNone {
		role = RoleOrdinary
	}
	return Snapshot{Identity: &identity, Role: role, Resolved: true}
}

// Failed is a resolved snapshot recording why resolution did not complete.
func Failed(err error) Snapshot {
	return Snapshot{Role: RoleNone, Resolved: true, Err: err}
}

// HasIdentity reports whether the snapshot carries an authoritative identity.
func (s Snapshot) HasIdentity() bool {
	return s.Resolved && s.Err == nil && s.Identity != nil
}

// IdentityID returns the identity ID or "" when there is none.
func (s Snapshot) IdentityID() string {
	if !s.HasIdentity() {
		return ""
	}
	return s.Identity.ID
}

// Fingerprint returns a short stable digest of a credential for log fields.
// Credentials themselves are never logged.
func Fingerprint(credential string) string {
	if credential == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:6])
}

type snapshotKey struct{}

// WithSnapshot stores a resolved snapshot in the context.
func WithSnapshot(ctx context.Context, s Snapshot) context.Context {
	return context.WithValue(ctx, snapshotKey{}, s)
}

// FromContext returns the snapshot stored by WithSnapshot. The second value
// is false when none was stored, in which case an Unresolved snapshot is
// returned.
func FromContext(ctx context.Context) (Snapshot, bool) {
	s, ok := ctx.Value(snapshotKey{}).(Snapshot)
	if !ok {
		return Unresolved(), false
	}
	return s, true
}
