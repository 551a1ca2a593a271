// Package guard decides whether a viewer may see a protected page region.
//
// Evaluate is a pure function of a session snapshot and a requirement. Mount
// drives it from pushed snapshots for one mount lifecycle; Middleware applies
// it to server-rendered requests. The guard is a UX gate: handlers that change
// state sit behind Middleware so the server re-checks every request.
package guard

import (
	"fmt"
	"net/url"

	"donorhub/internal/session"
)

// Requirement is the role a protected region needs.
type Requirement int

const (
	RequireAuthenticated Requirement = iota
	RequireAdministrator
)

func (r Requirement) String() string {
	switch r {
	case RequireAdministrator:
		return "administrator"
	default:
		return "any-authenticated"
	}
}

// ParseRequirement accepts the names produced by Requirement.String.
func ParseRequirement(s string) (Requirement, error) {
	switch s {
	case "any-authenticated", "":
		return RequireAuthenticated, nil
	case "administrator":
		return RequireAdministrator, nil
	}
	return RequireAuthenticated, fmt.Errorf("unknown requirement %q", s)
}

// Decision is the access outcome for one snapshot.
type Decision int

const (
	Pending Decision = iota
	Denied
	Granted
)

func (d Decision) String() string {
	switch d {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	default:
		return "pending"
	}
}

// Reason explains a Decision.
type Reason string

const (
	ReasonUnresolved       Reason = "unresolved"
	ReasonUnauthenticated  Reason = "unauthenticated"
	ReasonInsufficientRole Reason = "insufficient_role"
	ReasonResolutionFailed Reason = "resolution_failed"
	ReasonOK               Reason = "ok"
)

// Verdict pairs a decision with its reason.
type Verdict struct {
	Decision Decision
	Reason   Reason
}

var (
	verdictPending    = Verdict{Decision: Pending, Reason: ReasonUnresolved}
	verdictGranted    = Verdict{Decision: Granted, Reason: ReasonOK}
	verdictUnverified = Verdict{Decision: Denied, Reason: ReasonResolutionFailed}
)

// Evaluate decides access for snapshot s. An unresolved snapshot is always
// Pending whatever identity or role it carries; a failed resolution is always
// Denied.
func Evaluate(s session.Snapshot, req Requirement) Verdict {
	switch {
	case !s.Resolved:
		return verdictPending
	case s.Err != nil:
		return verdictUnverified
	case !s.HasIdentity():
		return Verdict{Decision: Denied, Reason: ReasonUnauthenticated}
	case req == RequireAdministrator && s.Role != session.RoleAdministrator:
		return Verdict{Decision: Denied, Reason: ReasonInsufficientRole}
	}
	return verdictGranted
}

// Fallbacks are the navigation targets for denied verdicts.
type Fallbacks struct {
	Home  string
	Login string
}

// DefaultFallbacks sends anonymous viewers to the login page and everyone
// else home.
var DefaultFallbacks = Fallbacks{Home: "/", Login: "/login"}

// UnverifiedNotice is the query value the home page shows as "unable to
// verify access".
const UnverifiedNotice = "unverified"

// Location returns where a denied viewer is sent. It returns "" for verdicts
// that do not navigate.
func (f Fallbacks) Location(v Verdict) string {
	if v.Decision != Denied {
		return ""
	}
	switch v.Reason {
	case ReasonUnauthenticated:
		return f.Login
	case ReasonResolutionFailed:
		return f.Home + "?" + url.Values{"access": {UnverifiedNotice}}.Encode()
	default:
		return f.Home
	}
}
