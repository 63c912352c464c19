package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
)

type fakeSource struct {
	snapshot goGuard.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goGuard.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                     { return f.dropped }

func TestRenderEmptyWhenMetricsDisabled(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{})
	if got := exp.Render(); got != "" {
		t.Fatalf("expected empty output, got:\n%s", got)
	}
}

func TestRenderCountersAndHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricAccessPermit:    7,
				goGuard.MetricStaleResolution: 3,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricResolveLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	out := exp.Render()
	for _, want := range []string{
		"goguard_access_permit_total 7",
		"goguard_stale_resolution_total 3",
		"goguard_redirect_unauthenticated_total 0",
		`goguard_resolve_latency_seconds_bucket{le="0.005"} 1`,
		`goguard_resolve_latency_seconds_bucket{le="+Inf"} 36`,
		"goguard_resolve_latency_seconds_count 36",
		"goguard_audit_dropped_total 2",
		"# TYPE goguard_resolve_latency_seconds histogram",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output:\n%s", want, out)
		}
	}
}

func TestRenderSkipsDisabledHistogram(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{goGuard.MetricSignIn: 1},
		},
	})

	out := exp.Render()
	if strings.Contains(out, "goguard_resolve_latency_seconds") {
		t.Fatalf("histogram should be absent, got:\n%s", out)
	}
	if !strings.Contains(out, "goguard_sign_in_total 1") {
		t.Fatalf("missing sign-in counter:\n%s", out)
	}
}

func TestHandlerWritesPrometheusContentType(t *testing.T) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{goGuard.MetricAccessPermit: 1},
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	exp.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "text/plain") {
		t.Fatalf("expected prometheus content type, got %q", got)
	}
}

func BenchmarkRender(b *testing.B) {
	exp := NewExporterFromSource(fakeSource{
		snapshot: goGuard.MetricsSnapshot{
			Counters: map[goGuard.MetricID]uint64{
				goGuard.MetricAccessPermit:             1000,
				goGuard.MetricRedirectUnauthenticated:  40,
				goGuard.MetricRedirectProfileMissing:   12,
				goGuard.MetricRedirectRoleNotPermitted: 5,
				goGuard.MetricStaleResolution:          9,
			},
			Histograms: map[goGuard.MetricID][]uint64{
				goGuard.MetricResolveLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = exp.Render()
	}
}
