package goGuard

import (
	"sync/atomic"
	"time"
)

// MetricID identifies a counter or histogram slot.
type MetricID uint16

const (
	// MetricAccessPermit counts permit decisions.
	MetricAccessPermit MetricID = iota
	// MetricRedirectUnauthenticated counts redirects for absent sessions.
	MetricRedirectUnauthenticated
	// MetricRedirectProfileMissing counts onboarding redirects.
	MetricRedirectProfileMissing
	// MetricRedirectProfileStore counts sign-in redirects caused by store failures.
	MetricRedirectProfileStore
	// MetricRedirectRoleNotPermitted counts role-policy redirects.
	MetricRedirectRoleNotPermitted
	// MetricRedirectLanding counts owner/traveler landing-page redirects.
	MetricRedirectLanding
	// MetricStaleResolution counts profile fetch results discarded because a
	// newer identity event superseded them.
	MetricStaleResolution
	// MetricSignIn counts sessions created.
	MetricSignIn
	// MetricSignInFailure counts rejected password sign-ins.
	MetricSignInFailure
	// MetricSignInThrottled counts password sign-ins refused by the throttle.
	MetricSignInThrottled
	// MetricSignOut counts sessions deleted.
	MetricSignOut
	// MetricRegister counts accounts registered.
	MetricRegister
	// MetricOnboard counts profiles created by onboarding.
	MetricOnboard
	// MetricGuardMounted counts Guard mounts.
	MetricGuardMounted
	// MetricGuardUnmounted counts Guard unmounts.
	MetricGuardUnmounted
	// MetricResolveLatency is the histogram of identity-event-to-decision latency.
	MetricResolveLatency
	metricIDCount
)

const (
	histBucketCount = 8
	cacheLineSize   = 64
)

type metricHistogram struct {
	buckets [histBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Metrics holds lock-free counters and the resolve latency histogram.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	enabled       bool
	enableLatency bool
	counters      [metricIDCount]paddedCounter
	histograms    [metricIDCount]metricHistogram
}

// MetricsSnapshot is a point-in-time copy of all metric values.
type MetricsSnapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// NewMetrics allocates metric storage according to cfg.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return &Metrics{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
	}
}

// Enabled reports whether counters are recorded.
func (m *Metrics) Enabled() bool {
	return m != nil && m.enabled
}

// LatencyEnabled reports whether the latency histogram is recorded.
func (m *Metrics) LatencyEnabled() bool {
	return m != nil && m.enableLatency
}

// Inc adds one to the counter id.
func (m *Metrics) Inc(id MetricID) {
	if m == nil || !m.enabled || id >= metricIDCount {
		return
	}
	atomic.AddUint64(&m.counters[id].value, 1)
}

// Observe records d into the histogram id. Only [MetricResolveLatency]
// is a histogram.
func (m *Metrics) Observe(id MetricID, d time.Duration) {
	if m == nil || !m.enableLatency || id != MetricResolveLatency {
		return
	}
	atomic.AddUint64(&m.histograms[id].buckets[bucketIndex(d)], 1)
}

// Value returns the current value of counter id.
func (m *Metrics) Value(id MetricID) uint64 {
	if m == nil || id >= metricIDCount {
		return 0
	}
	return atomic.LoadUint64(&m.counters[id].value)
}

// Snapshot copies every counter and, when enabled, the histogram buckets.
func (m *Metrics) Snapshot() MetricsSnapshot {
	if m == nil || !m.enabled {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := MetricsSnapshot{
		Counters:   make(map[MetricID]uint64, int(metricIDCount)),
		Histograms: make(map[MetricID][]uint64, 1),
	}

	for id := MetricID(0); id < metricIDCount; id++ {
		if id == MetricResolveLatency {
			continue
		}
		s.Counters[id] = atomic.LoadUint64(&m.counters[id].value)
	}

	if m.enableLatency {
		buckets := make([]uint64, histBucketCount)
		for i := range buckets {
			buckets[i] = atomic.LoadUint64(&m.histograms[MetricResolveLatency].buckets[i])
		}
		s.Histograms[MetricResolveLatency] = buckets
	}

	return s
}

// recordDecision bumps the counter matching d.
func (m *Metrics) recordDecision(d Decision) {
	if d.Permitted() {
		m.Inc(MetricAccessPermit)
		return
	}
	switch d.Reason {
	case ErrUnauthenticated:
		m.Inc(MetricRedirectUnauthenticated)
	case ErrProfileMissing:
		m.Inc(MetricRedirectProfileMissing)
	case ErrProfileStore:
		m.Inc(MetricRedirectProfileStore)
	case ErrRoleNotPermitted:
		m.Inc(MetricRedirectRoleNotPermitted)
	case ErrLandingRedirect:
		m.Inc(MetricRedirectLanding)
	}
}

func bucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
