// Package jwt issues and verifies the identity tokens that carry a subject
// ID and session ID between sign-in and the HTTP guard.
//
// # What this package must NOT do
//
//   - Access Redis or decide whether a session is still live; the Engine
//     checks the session store after a token verifies.
//   - Import goGuard or session.
package jwt
