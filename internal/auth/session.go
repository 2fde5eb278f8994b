package auth

import (
	"errors"

	"github.com/crustyclaw/crustyclaw/internal/policy"
)

// ErrNoRoles is returned by Authorize when called with an empty role set:
// spec.md requires roles to be non-empty in the Authorized state, and
// unlike AuthorizeWithPolicy/AuthorizeTransparent (which always seed a
// default role), the direct Authorize path has no other way to enforce
// that invariant at compile time.
var ErrNoRoles = errors.New("auth: cannot authorize with an empty role set")

// UnauthenticatedSession is the initial state: it exposes only the
// transitions into Authenticated, never anything that assumes an
// identity exists.
type UnauthenticatedSession struct{}

// NewSession starts a fresh unauthenticated session.
func NewSession() UnauthenticatedSession {
	return UnauthenticatedSession{}
}

// Authenticate binds an externally supplied identity name, with no
// local-OS identity attached.
func (UnauthenticatedSession) Authenticate(identity string) AuthenticatedSession {
	return AuthenticatedSession{identity: identity}
}

// AuthenticateLocal binds the detected local-OS identity.
func (UnauthenticatedSession) AuthenticateLocal() AuthenticatedSession {
	id := DetectLocalIdentity()
	return AuthenticatedSession{identity: id.Username, local: &id}
}

// AuthenticatedSession has a bound identity but no granted roles yet; it
// exposes only the transitions into Authorized.
type AuthenticatedSession struct {
	identity string
	local    *LocalIdentity
}

// Identity returns the bound identity name.
func (s AuthenticatedSession) Identity() string { return s.identity }

// LocalIdentity returns the detected local identity, if authentication
// went through AuthenticateLocal.
func (s AuthenticatedSession) LocalIdentity() (LocalIdentity, bool) {
	if s.local == nil {
		return LocalIdentity{}, false
	}
	return *s.local, true
}

// Authorize grants the caller-supplied role set directly, with no policy
// consultation. Returns ErrNoRoles if roles is empty: spec.md requires
// every Authorized session to carry at least one role.
func (s AuthenticatedSession) Authorize(roles []string) (AuthorizedSession, error) {
	if len(roles) == 0 {
		return AuthorizedSession{}, ErrNoRoles
	}
	granted := make([]string, len(roles))
	copy(granted, roles)
	return AuthorizedSession{identity: s.identity, local: s.local, roles: granted}, nil
}

// AuthorizeWithPolicy expands the granted role set starting from the
// identity's default role (the local identity's DefaultRole when
// present, else the identity name itself), adding each candidate role
// in {admin, operator, user, viewer} for which the engine allows both
// the candidate to start a session and the identity to assume it.
func (s AuthenticatedSession) AuthorizeWithPolicy(engine *policy.Engine) AuthorizedSession {
	base := s.identity
	if s.local != nil {
		base = s.local.DefaultRole()
	}

	roles := []string{base}
	seen := map[string]bool{base: true}

	for _, candidate := range candidateRoles {
		if seen[candidate] {
			continue
		}
		if engine.IsAllowed(candidate, "auth", "session") && engine.IsAllowed(s.identity, "assume", candidate) {
			roles = append(roles, candidate)
			seen[candidate] = true
		}
	}

	return AuthorizedSession{identity: s.identity, local: s.local, roles: roles}
}

// AuthorizedSession carries a bound identity and its granted roles. This
// is the only state exposing operations meant to gate real actions.
type AuthorizedSession struct {
	identity string
	local    *LocalIdentity
	roles    []string
}

// Identity returns the bound identity name.
func (s AuthorizedSession) Identity() string { return s.identity }

// Roles returns the granted role set.
func (s AuthorizedSession) Roles() []string {
	out := make([]string, len(s.roles))
	copy(out, s.roles)
	return out
}

// HasAnyRole reports whether any of the session's granted roles appears
// in the given set.
func (s AuthorizedSession) HasAnyRole(roles ...string) bool {
	want := make(map[string]bool, len(roles))
	for _, r := range roles {
		want[r] = true
	}
	for _, r := range s.roles {
		if want[r] {
			return true
		}
	}
	return false
}
