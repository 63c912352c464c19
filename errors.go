package goGuard

import "errors"

// Decision reasons. Every one of them resolves to a redirect.
var (
	// ErrUnauthenticated means no session was present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrProfileMissing means the session is valid but no profile exists yet.
	ErrProfileMissing = errors.New("profile missing")
	// ErrProfileStore means the profile fetch failed for any reason other
	// than a missing record.
	ErrProfileStore = errors.New("profile store error")
	// ErrRoleNotPermitted means the profile role is excluded by the route.
	ErrRoleNotPermitted = errors.New("role not permitted")
	// ErrLandingRedirect means the role belongs on a different landing page.
	ErrLandingRedirect = errors.New("landing page redirect")
)

// Collaborator and engine errors.
var (
	// ErrProfileNotFound is returned by profile stores when no record exists
	// for the subject.
	ErrProfileNotFound = errors.New("profile not found")
	// ErrProfileExists is returned by Onboard when a profile already exists.
	ErrProfileExists = errors.New("profile already exists")
	// ErrSessionNotFound is returned when a session ID does not resolve.
	ErrSessionNotFound = errors.New("session not found")
	// ErrTokenInvalid is returned when an identity token fails verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrInvalidCredentials is returned by SignInWithPassword.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSignInThrottled is returned by SignInWithPassword while the email or
	// client IP is over its failed-attempt budget.
	ErrSignInThrottled = errors.New("too many sign-in attempts")
	// ErrAccountExists is returned by Register for a taken identifier.
	ErrAccountExists = errors.New("account already exists")
	// ErrStoreUnavailable wraps backend failures surfaced by engine operations.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrGuardMounted is returned when Mount is called twice.
	ErrGuardMounted = errors.New("guard already mounted")
	// ErrEngineNotReady is returned by nil or unbuilt engines.
	ErrEngineNotReady = errors.New("engine not initialized")
)
