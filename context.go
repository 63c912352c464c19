package goGuard

import "context"

type clientIPContextKey struct{}
type userAgentContextKey struct{}
type sessionContextKey struct{}
type profileContextKey struct{}

// WithClientIP attaches the caller's IP address to ctx. It is copied into
// audit events.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPContextKey{}, ip)
}

// WithUserAgent attaches the caller's User-Agent to ctx. It is copied into
// audit event metadata on sign-in.
func WithUserAgent(ctx context.Context, userAgent string) context.Context {
	return context.WithValue(ctx, userAgentContextKey{}, userAgent)
}

// WithSession threads the resolved [Session] through ctx so children of a
// guarded subtree do not consult ambient state.
func WithSession(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, sess)
}

// SessionFromContext returns the session attached by [WithSession].
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	sess, ok := ctx.Value(sessionContextKey{}).(Session)
	return sess, ok
}

// WithProfile attaches the profile a permit decision was issued for.
func WithProfile(ctx context.Context, profile Profile) context.Context {
	return context.WithValue(ctx, profileContextKey{}, profile)
}

// ProfileFromContext returns the profile attached by [WithProfile].
func ProfileFromContext(ctx context.Context) (Profile, bool) {
	if ctx == nil {
		return Profile{}, false
	}
	p, ok := ctx.Value(profileContextKey{}).(Profile)
	return p, ok
}

func clientIPFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ip, _ := ctx.Value(clientIPContextKey{}).(string)
	return ip
}

func userAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	ua, _ := ctx.Value(userAgentContextKey{}).(string)
	return ua
}
