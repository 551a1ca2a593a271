package guard

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donorhub/internal/session"
)

var (
	ordinary      = session.Authenticated(session.Identity{ID: "donor-1"}, session.RoleOrdinary)
	administrator = session.Authenticated(session.Identity{ID: "admin-1"}, session.RoleAdministrator)
)

func TestEvaluate_UnresolvedIsAlwaysPending(t *testing.T) {
	identity := &session.Identity{ID: "donor-1"}
	cases := []session.Snapshot{
		{},
		{Identity: identity},
		{Identity: identity, Role: session.RoleAdministrator},
		{Role: session.RoleAdministrator, Err: errors.New("boom")},
	}
	for _, req := range []Requirement{RequireAuthenticated, RequireAdministrator} {
		for _, snap := range cases {
			assert.Equal(t, Verdict{Pending, ReasonUnresolved}, Evaluate(snap, req), "req=%s snap=%+v", req, snap)
		}
	}
}

func TestEvaluate_ResolvedSnapshots(t *testing.T) {
	tests := []struct {
		name string
		snap session.Snapshot
		req  Requirement
		want Verdict
	}{
		{"anonymous needs login", session.Anonymous(), RequireAuthenticated, Verdict{Denied, ReasonUnauthenticated}},
		{"anonymous on admin region", session.Anonymous(), RequireAdministrator, Verdict{Denied, ReasonUnauthenticated}},
		{"ordinary donor on dashboard", ordinary, RequireAuthenticated, Verdict{Granted, ReasonOK}},
		{"ordinary donor on admin region", ordinary, RequireAdministrator, Verdict{Denied, ReasonInsufficientRole}},
		{"administrator on admin region", administrator, RequireAdministrator, Verdict{Granted, ReasonOK}},
		{"administrator on dashboard", administrator, RequireAuthenticated, Verdict{Granted, ReasonOK}},
		{"failed resolution fails closed", session.Failed(errors.New("kratos down")), RequireAuthenticated, Verdict{Denied, ReasonResolutionFailed}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(tt.snap, tt.req))
		})
	}

	t.Run("failed resolution with a stale identity still fails closed", func(t *testing.T) {
		snap := session.Failed(errors.New("role store down"))
		snap.Identity = &session.Identity{ID: "admin-1"}
		snap.Role = session.RoleAdministrator
		assert.Equal(t, Verdict{Denied, ReasonResolutionFailed}, Evaluate(snap, RequireAdministrator))
	})
}

func TestEvaluate_IsDeterministic(t *testing.T) {
	for _, snap := range []session.Snapshot{session.Unresolved(), session.Anonymous(), ordinary, administrator} {
		assert.Equal(t, Evaluate(snap, RequireAdministrator), Evaluate(snap, RequireAdministrator))
	}
}

func TestRequirementNames(t *testing.T) {
	for _, req := range []Requirement{RequireAuthenticated, RequireAdministrator} {
		parsed, err := ParseRequirement(req.String())
		require.NoError(t, err)
		assert.Equal(t, req, parsed)
	}

	parsed, err := ParseRequirement("")
	require.NoError(t, err)
	assert.Equal(t, RequireAuthenticated, parsed)

	_, err = ParseRequirement("superuser")
	assert.Error(t, err)
}

func TestFallbacks_Location(t *testing.T) {
	f := Fallbacks{Home: "/", Login: "/login"}

	assert.Equal(t, "/login", f.Location(Verdict{Denied, ReasonUnauthenticated}))
	assert.Equal(t, "/", f.Location(Verdict{Denied, ReasonInsufficientRole}))
	assert.Equal(t, "/?access=unverified", f.Location(Verdict{Denied, ReasonResolutionFailed}))
	assert.Empty(t, f.Location(Verdict{Granted, ReasonOK}))
	assert.Empty(t, f.Location(Verdict{Pending, ReasonUnresolved}))
}
