package internaldefs

import (
	goGuard "github.com/MrEthical07/goGuard"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goGuard.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter in export order.
var CounterDefs = []CounterDef{
	{ID: goGuard.MetricAccessPermit, Name: "goguard_access_permit_total", Help: "Access decisions that rendered protected content."},
	{ID: goGuard.MetricRedirectUnauthenticated, Name: "goguard_redirect_unauthenticated_total", Help: "Redirects to sign-in for absent sessions."},
	{ID: goGuard.MetricRedirectProfileMissing, Name: "goguard_redirect_profile_missing_total", Help: "Redirects to onboarding for subjects without a profile."},
	{ID: goGuard.MetricRedirectProfileStore, Name: "goguard_redirect_profile_store_total", Help: "Redirects to sign-in caused by profile store failures."},
	{ID: goGuard.MetricRedirectRoleNotPermitted, Name: "goguard_redirect_role_not_permitted_total", Help: "Redirects for roles excluded by route policy."},
	{ID: goGuard.MetricRedirectLanding, Name: "goguard_redirect_landing_total", Help: "Redirects to the role's own landing page."},
	{ID: goGuard.MetricStaleResolution, Name: "goguard_stale_resolution_total", Help: "Profile fetch results discarded after a newer identity event."},
	{ID: goGuard.MetricSignIn, Name: "goguard_sign_in_total", Help: "Sessions created."},
	{ID: goGuard.MetricSignInFailure, Name: "goguard_sign_in_failure_total", Help: "Rejected password sign-ins."},
	{ID: goGuard.MetricSignInThrottled, Name: "goguard_sign_in_throttled_total", Help: "Password sign-ins refused by the failed-attempt throttle."},
	{ID: goGuard.MetricSignOut, Name: "goguard_sign_out_total", Help: "Sessions ended."},
	{ID: goGuard.MetricRegister, Name: "goguard_register_total", Help: "Accounts registered."},
	{ID: goGuard.MetricOnboard, Name: "goguard_onboard_total", Help: "Profiles created by onboarding."},
	{ID: goGuard.MetricGuardMounted, Name: "goguard_guard_mounted_total", Help: "Guards mounted."},
	{ID: goGuard.MetricGuardUnmounted, Name: "goguard_guard_unmounted_total", Help: "Guards unmounted."},
}

// HistogramDefs lists every histogram in export order.
var HistogramDefs = []HistogramDef{
	{ID: goGuard.MetricResolveLatency, Name: "goguard_resolve_latency_seconds", Help: "Time from identity event to applied access decision."},
}

// HistogramBounds are the upper bounds of the eight latency buckets.
var HistogramBounds = []string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundValues are HistogramBounds in seconds, without +Inf.
var HistogramBoundValues = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// NormalizeBuckets copies raw into a fixed eight-bucket array.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
