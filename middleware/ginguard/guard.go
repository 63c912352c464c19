// Package ginguard adapts the access guard to gin.
package ginguard

import (
	"context"
	"net/http"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/MrEthical07/goGuard/middleware"
	"github.com/gin-gonic/gin"
)

// Context keys set on a permitted request.
const (
	SessionKey = "goguard.session"
	ProfileKey = "goguard.profile"
)

type evaluator interface {
	Evaluate(ctx context.Context, token string, route goGuard.Route) (goGuard.Decision, goGuard.Session)
}

// Guard returns a gin handler that evaluates route before the rest of the
// chain. Redirect decisions abort with 302; a nil engine aborts with 401.
func Guard(engine *goGuard.Engine, route goGuard.Route) gin.HandlerFunc {
	if engine == nil {
		return guard(nil, route)
	}
	return guard(engine, route)
}

func guard(ev evaluator, route goGuard.Route) gin.HandlerFunc {
	return func(c *gin.Context) {
		if ev == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		ctx := middleware.RequestContext(c.Request)
		d, sess := ev.Evaluate(ctx, middleware.Token(c.Request), route)
		if !d.Permitted() {
			if d.Target == "" {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
				return
			}
			c.Redirect(http.StatusFound, d.Target)
			c.Abort()
			return
		}

		c.Set(SessionKey, sess)
		c.Set(ProfileKey, d.Profile)
		c.Request = c.Request.WithContext(goGuard.WithProfile(goGuard.WithSession(ctx, sess), d.Profile))
		c.Next()
	}
}

// Profile returns the profile of a permitted request.
func Profile(c *gin.Context) (goGuard.Profile, bool) {
	v, ok := c.Get(ProfileKey)
	if !ok {
		return goGuard.Profile{}, false
	}
	p, ok := v.(goGuard.Profile)
	return p, ok
}

// Session returns the session of a permitted request.
func Session(c *gin.Context) (goGuard.Session, bool) {
	v, ok := c.Get(SessionKey)
	if !ok {
		return goGuard.Session{}, false
	}
	s, ok := v.(goGuard.Session)
	return s, ok
}
