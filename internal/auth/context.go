package auth

import "context"

type contextKey string

const sessionKey contextKey = "authorized_session"

// WithAuthorizedSession returns a context carrying an authorized session
// for downstream handlers.
func WithAuthorizedSession(ctx context.Context, s *AuthorizedSession) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// AuthorizedSessionFromContext returns the authorized session stored in
// ctx, or nil if none was set.
func AuthorizedSessionFromContext(ctx context.Context) *AuthorizedSession {
	v := ctx.Value(sessionKey)
	if v == nil {
		return nil
	}
	s, _ := v.(*AuthorizedSession)
	return s
}
