package auth

import "github.com/crustyclaw/crustyclaw/internal/policy"

// AuthorizeTransparent implements the transparent local-auth flow used by
// the CLI/TUI: if roleMap names an explicit role for the authenticated
// identity, that role (plus the identity's default role, when different)
// is granted directly; otherwise it falls back to AuthorizeWithPolicy.
func AuthorizeTransparent(s AuthenticatedSession, roleMap map[string]string, engine *policy.Engine) AuthorizedSession {
	explicit, ok := roleMap[s.Identity()]
	if !ok || explicit == "" {
		return s.AuthorizeWithPolicy(engine)
	}

	roles := []string{explicit}
	defaultRole := s.Identity()
	if s.local != nil {
		defaultRole = s.local.DefaultRole()
	}
	if defaultRole != explicit {
		roles = append(roles, defaultRole)
	}
	// roles always has at least one element (explicit is checked non-empty
	// above), so the empty-role-set error can never fire here.
	authorized, _ := s.Authorize(roles)
	return authorized
}
