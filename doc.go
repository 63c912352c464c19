// Package goGuard is the access guard of a travel-booking application.
//
// A [Guard] sits in front of a protected subtree. It subscribes to an
// [IdentityProvider], loads the signed-in subject's [Profile] from a
// [ProfileStore] and hands the pair to [ResolveAccess], which either
// permits (the [Renderer] runs) or redirects (the [Router] navigates). Each
// identity change restarts resolution; results from superseded profile
// fetches are discarded.
//
// [Engine], assembled by [Builder], backs the guard with Redis: sessions and
// identity events live in package session, profiles in package profile (or
// profile/gormstore), credentials in package account. It also serves
// request-scoped decisions through [Engine.Evaluate] for the HTTP adapters in
// package middleware.
//
// # Roles
//
// [Role] is closed: owners land on the dashboard, travelers on the home
// page. A route may restrict roles with a [RoleSet]; a role outside the set
// is sent to its own landing page.
//
// # What this package must NOT do
//
//   - Render content or decide layout. The renderer owns that.
//   - Mutate profiles while resolving. Onboarding writes them through
//     [Engine.Onboard].
//   - Navigate or render after [Guard.Unmount] returns.
package goGuard
