// Package prometheus renders goEMS client metrics in the Prometheus text
// exposition format.
//
// [NewExporter] accepts anything with MetricsSnapshot and AuditDropped (a
// [goEMS.Client] in practice) and exposes an [http.Handler]. Counter names are
// goems_*_total; the single histogram is goems_mirror_latency_seconds.
//
// # What this package must NOT do
//
//   - Register in a global Prometheus registry; callers mount the Handler.
//   - Mutate client state.
package prometheus
