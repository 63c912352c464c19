// Package otel publishes goGuard metrics through an OpenTelemetry meter.
//
// Every counter becomes an Int64ObservableCounter. The resolve latency
// histogram becomes one gauge of cumulative bucket counts keyed by an "le"
// attribute plus a _count gauge. A single callback takes one
// [goGuard.Engine.MetricsSnapshot] per collection. The caller owns the
// MeterProvider.
package otel
