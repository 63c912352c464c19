// Package prometheus exposes goGuard metrics in the Prometheus text format
// without depending on a Prometheus client library.
//
// Counters are named goguard_*_total. The resolve latency histogram is
// goguard_resolve_latency_seconds and is only written when latency
// histograms are enabled. Mount [Exporter.Handler] on your own mux; the
// exporter never touches a global registry.
package prometheus
