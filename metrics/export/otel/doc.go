// Package otel binds goEMS client metrics to OpenTelemetry.
//
// [NewExporter] registers an Int64ObservableCounter per client counter and an
// Int64ObservableGauge per histogram bucket. A single callback reads
// [goEMS.Client.MetricsSnapshot] on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate client state.
package otel
