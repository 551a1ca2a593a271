package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSnapshotConstructors(t *testing.T) {
	t.Run("unresolved carries no authority", func(t *testing.T) {
		s := Unresolved()
		assert.False(t, s.Resolved)
		assert.False(t, s.HasIdentity())
		assert.Empty(t, s.IdentityID())
	})

	t.Run("authenticated defaults to ordinary role", func(t *testing.T) {
		s := Authenticated(Identity{ID: "d1"}, RoleNone)
		assert.True(t, s.HasIdentity())
		assert.Equal(t, RoleOrdinary, s.Role)
		assert.Equal(t, "d1", s.IdentityID())
	})

	t.Run("failed snapshot never exposes an identity", func(t *testing.T) {
		s := Failed(errors.New("boom"))
		s.Identity = &Identity{ID: "d1"}
		assert.True(t, s.Resolved)
		assert.False(t, s.HasIdentity())
	})
}

func TestSnapshotContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := WithSnapshot(context.Background(), Authenticated(Identity{ID: "d1"}, RoleAdministrator))
	got, ok := FromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, RoleAdministrator, got.Role)
}

func TestFingerprintIsStableAndOpaque(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	fp := Fingerprint("secret-cookie")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("secret-cookie"))
	assert.NotContains(t, fp, "secret")
}
