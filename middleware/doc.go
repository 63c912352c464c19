// Package middleware adapts the access guard to net/http.
//
// [Guard] reads the identity token from the Authorization header or the
// [TokenCookie] cookie and delegates the whole decision to
// Engine.Evaluate. Redirect decisions become 302 responses. Permitted
// requests reach the wrapped handler with goGuard.SessionFromContext and
// goGuard.ProfileFromContext populated.
//
// This package never parses tokens or touches Redis itself.
package middleware
