package goGuard

import "errors"

// DecisionKind is the outcome category of [ResolveAccess].
type DecisionKind uint8

const (
	// DecisionPermit renders the protected content.
	DecisionPermit DecisionKind = iota + 1
	// DecisionRedirect navigates away without rendering.
	DecisionRedirect
)

// String returns a short label used in audit events and metrics.
func (k DecisionKind) String() string {
	switch k {
	case DecisionPermit:
		return "permit"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Decision is the ephemeral result of evaluating a session, profile lookup
// and route. Target is set only for redirects; Reason is one of the
// decision-reason sentinels in errors.go, or nil for a permit.
type Decision struct {
	Kind    DecisionKind
	Target  string
	Reason  error
	Profile Profile
}

// Permitted reports whether the decision renders content.
func (d Decision) Permitted() bool {
	return d.Kind == DecisionPermit
}

func permit(p Profile) Decision {
	return Decision{Kind: DecisionPermit, Profile: p}
}

func redirect(target string, reason error) Decision {
	return Decision{Kind: DecisionRedirect, Target: target, Reason: reason}
}

// ResolveAccess is the pure access policy. It performs no I/O and is safe
// for concurrent use.
//
// Order of evaluation:
//  1. absent session: sign-in page
//  2. lookup error wrapping ErrProfileNotFound: onboarding page
//  3. any other lookup error or an invalid role: sign-in page
//  4. role outside route.AllowedRoles: the role's landing page
//  5. owner at home or traveler at dashboard: the role's landing page
//  6. otherwise permit
func ResolveAccess(sess Session, lookup ProfileLookup, route Route, paths Paths) Decision {
	if !sess.Present() {
		return redirect(paths.SignIn, ErrUnauthenticated)
	}

	if lookup.Err != nil {
		if errors.Is(lookup.Err, ErrProfileNotFound) {
			return redirect(paths.Onboarding, ErrProfileMissing)
		}
		return redirect(paths.SignIn, ErrProfileStore)
	}

	profile := lookup.Profile
	if !profile.Role.Valid() {
		return redirect(paths.SignIn, ErrProfileStore)
	}

	if route.AllowedRoles != nil && !route.AllowedRoles.Has(profile.Role) {
		return redirect(profile.Role.LandingPath(paths), ErrRoleNotPermitted)
	}

	switch profile.Role {
	case RoleOwner:
		if route.Path == paths.Home {
			return redirect(paths.Dashboard, ErrLandingRedirect)
		}
	case RoleTraveler:
		if route.Path == paths.Dashboard {
			return redirect(paths.Home, ErrLandingRedirect)
		}
	case RoleUnknown:
		return redirect(paths.SignIn, ErrProfileStore)
	}

	return permit(profile)
}
