package goGuard

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/goGuard/internal/audit"
)

// Session is the observed sign-in state. A Session with an empty SubjectID
// is absent: nobody is signed in.
type Session struct {
	SubjectID string
	SessionID string
}

// Present reports whether someone is signed in.
func (s Session) Present() bool {
	return s.SubjectID != ""
}

// Profile is the registered-user record read once per resolution cycle.
// The guard never mutates it.
type Profile struct {
	SubjectID   string
	Role        Role
	DisplayName string
	CreatedAt   time.Time
}

// ProfileLookup is the outcome of one [ProfileStore.GetProfile] call.
// Err is nil when Profile is valid.
type ProfileLookup struct {
	Profile Profile
	Err     error
}

// Paths names the pages the guard can redirect to.
type Paths struct {
	SignIn     string
	Onboarding string
	Home       string
	Dashboard  string
}

// Route is the per-navigation input to [ResolveAccess].
// AllowedRoles == nil means the route has no role constraint.
type Route struct {
	Path         string
	AllowedRoles *RoleSet
}

// RouteFor is a convenience constructor for a constrained route.
func RouteFor(path string, roles ...Role) Route {
	set := NewRoleSet(roles...)
	return Route{Path: path, AllowedRoles: &set}
}

// IdentityProvider supplies sign-in state changes. Subscribe must deliver
// the current state promptly after subscribing and every transition after
// that, until the returned unsubscribe function is called.
type IdentityProvider interface {
	Subscribe(onChange func(Session)) (unsubscribe func())
}

// ProfileStore loads profiles by subject ID. Implementations return an
// error wrapping [ErrProfileNotFound] when no record exists.
type ProfileStore interface {
	GetProfile(ctx context.Context, subjectID string) (Profile, error)
}

// Router performs navigation for redirect decisions.
type Router interface {
	Navigate(path string)
}

// Renderer renders the protected content once access is permitted.
type Renderer interface {
	Render(ctx context.Context, profile Profile)
}

// RouterFunc adapts a function to [Router].
type RouterFunc func(path string)

// Navigate calls f(path).
func (f RouterFunc) Navigate(path string) { f(path) }

// RendererFunc adapts a function to [Renderer].
type RendererFunc func(ctx context.Context, profile Profile)

// Render calls f(ctx, profile).
func (f RendererFunc) Render(ctx context.Context, profile Profile) { f(ctx, profile) }

// IdentityProviderFunc adapts a function to [IdentityProvider].
type IdentityProviderFunc func(onChange func(Session)) func()

// Subscribe calls f(onChange).
func (f IdentityProviderFunc) Subscribe(onChange func(Session)) func() { return f(onChange) }

// ProfileStoreFunc adapts a function to [ProfileStore].
type ProfileStoreFunc func(ctx context.Context, subjectID string) (Profile, error)

// GetProfile calls f(ctx, subjectID).
func (f ProfileStoreFunc) GetProfile(ctx context.Context, subjectID string) (Profile, error) {
	return f(ctx, subjectID)
}

// AuditEvent is a structured record describing a guard decision or an
// identity/profile lifecycle change.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = internalaudit.Sink

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards audit events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per audit event.
type JSONWriterSink = internalaudit.JSONWriterSink
