package session

import "context"

//go:generate mockgen -source=ports.go -destination=mocks/ports_mock.go -package=mocks

// IdentityValidator verifies a session credential against the identity service.
type IdentityValidator interface {
	ValidateSession(ctx context.Context, credential string) (*Identity, error)
}

// RoleDirectory reports the role held by a verified identity.
type RoleDirectory interface {
	Role(ctx context.Context, identityID string) (Role, error)
}

// SnapshotResolver turns a credential into a resolved snapshot.
type SnapshotResolver interface {
	Resolve(ctx context.Context, credential string) Snapshot
}
