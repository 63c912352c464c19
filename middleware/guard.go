package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"

	goGuard "github.com/MrEthical07/goGuard"
)

// TokenCookie is the cookie consulted when no Authorization header is sent.
const TokenCookie = "goguard_token"

type evaluator interface {
	Evaluate(ctx context.Context, token string, route goGuard.Route) (goGuard.Decision, goGuard.Session)
}

// Guard returns middleware that evaluates route for every request.
//
// A permit calls next with the session and profile attached to the request
// context. A redirect answers 302 to the decision target. A nil engine
// answers 401.
func Guard(engine *goGuard.Engine, route goGuard.Route) func(http.Handler) http.Handler {
	if engine == nil {
		return guard(nil, route)
	}
	return guard(engine, route)
}

func guard(ev evaluator, route goGuard.Route) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ev == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := RequestContext(r)
			d, sess := ev.Evaluate(ctx, Token(r), route)
			if !d.Permitted() {
				if d.Target == "" {
					http.Error(w, "unauthorized", http.StatusUnauthorized)
					return
				}
				http.Redirect(w, r, d.Target, http.StatusFound)
				return
			}

			ctx = goGuard.WithProfile(goGuard.WithSession(ctx, sess), d.Profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Token extracts the identity token from the Authorization header or,
// failing that, from [TokenCookie]. It returns "" when neither is set.
func Token(r *http.Request) string {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token
	}
	if c, err := r.Cookie(TokenCookie); err == nil {
		return c.Value
	}
	return ""
}

// RequestContext copies the caller's address and User-Agent into the
// request context for audit events.
func RequestContext(r *http.Request) context.Context {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ctx := goGuard.WithClientIP(r.Context(), host)
	return goGuard.WithUserAgent(ctx, r.UserAgent())
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
