package internaldefs

import (
	goEMS "github.com/MrEthical07/goEMS"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   goEMS.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   goEMS.MetricID
	Name string
	Help string
}

// CounterDefs lists every client counter in export order.
var CounterDefs = []CounterDef{
	{ID: goEMS.MetricHydrateRestored, Name: "goems_hydrate_restored_total", Help: "Hydrations that restored persisted session state."},
	{ID: goEMS.MetricHydrateEmpty, Name: "goems_hydrate_empty_total", Help: "Hydrations that found no persisted session state."},
	{ID: goEMS.MetricHydrateReset, Name: "goems_hydrate_reset_total", Help: "Hydrations that reset corrupt or unreadable session state."},
	{ID: goEMS.MetricMirrorFailure, Name: "goems_mirror_failure_total", Help: "Durable writes or deletes that left a field memory-only."},
	{ID: goEMS.MetricLogin, Name: "goems_login_total", Help: "Completed login transitions."},
	{ID: goEMS.MetricLogout, Name: "goems_logout_total", Help: "Completed logout transitions."},
	{ID: goEMS.MetricCheckIn, Name: "goems_attendance_check_in_total", Help: "Attendance check-ins."},
	{ID: goEMS.MetricCheckOut, Name: "goems_attendance_check_out_total", Help: "Attendance check-outs."},
	{ID: goEMS.MetricSocketConnect, Name: "goems_socket_connect_total", Help: "Realtime connections established."},
	{ID: goEMS.MetricSocketReconnect, Name: "goems_socket_reconnect_total", Help: "Realtime reconnections after a dropped connection."},
	{ID: goEMS.MetricSocketGiveUp, Name: "goems_socket_give_up_total", Help: "Realtime streams abandoned after exhausting reconnection attempts."},
	{ID: goEMS.MetricProjectCreateSuccess, Name: "goems_project_create_success_total", Help: "Projects created."},
	{ID: goEMS.MetricProjectCreateFailure, Name: "goems_project_create_failure_total", Help: "Rejected or failed project creations."},
	{ID: goEMS.MetricTokenExpired, Name: "goems_token_expired_total", Help: "REST calls that ended the session because the bearer token expired or was rejected."},
}

// HistogramDefs lists every client histogram.
var HistogramDefs = []HistogramDef{
	{ID: goEMS.MetricMirrorLatency, Name: "goems_mirror_latency_seconds", Help: "Durable write-through latency."},
}

// HistogramBounds are the le labels matching the core bucket layout.
var HistogramBounds = []string{
	"0.001",
	"0.0025",
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as instrument-name suffixes.
var HistogramBoundSuffix = []string{
	"0_001",
	"0_0025",
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"inf",
}

// AuditDroppedName is the counter for audit events lost to backpressure.
const AuditDroppedName = "goems_audit_dropped_total"

// AuditDroppedHelp describes AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

// NormalizeBuckets pads or truncates raw to the fixed bucket count.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
