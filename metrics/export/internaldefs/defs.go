package internaldefs

import (
	goLink "github.com/MrEthical07/goLink"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   goLink.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   goLink.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: goLink.MetricInitiateSuccess, Name: "golink_initiate_success_total", Help: "Link initiations that issued a verification code."},
	{ID: goLink.MetricInitiateFailure, Name: "golink_initiate_failure_total", Help: "Rejected link initiations."},
	{ID: goLink.MetricInvalidExternalID, Name: "golink_invalid_external_id_total", Help: "Initiations rejected for a malformed external account id."},
	{ID: goLink.MetricAlreadyLinked, Name: "golink_already_linked_total", Help: "Operations rejected because the external account is already linked."},
	{ID: goLink.MetricCodeCollision, Name: "golink_code_collision_total", Help: "Code draws that collided with a live pending code."},
	{ID: goLink.MetricConfirmSuccess, Name: "golink_confirm_success_total", Help: "Confirmations that persisted a link."},
	{ID: goLink.MetricConfirmFailure, Name: "golink_confirm_failure_total", Help: "Rejected confirmations."},
	{ID: goLink.MetricUnknownCode, Name: "golink_unknown_code_total", Help: "Confirmations with an unknown or expired code."},
	{ID: goLink.MetricOwnerMismatch, Name: "golink_owner_mismatch_total", Help: "Confirmations by an account that does not own the code."},
	{ID: goLink.MetricPendingExpired, Name: "golink_pending_expired_total", Help: "Pending registrations evicted after their TTL."},
	{ID: goLink.MetricPersistenceFailure, Name: "golink_persistence_failure_total", Help: "Identity store read or write failures."},
	{ID: goLink.MetricNotificationSent, Name: "golink_notification_sent_total", Help: "Notifications acknowledged by the webhook."},
	{ID: goLink.MetricNotificationFailed, Name: "golink_notification_failed_total", Help: "Notifications that failed to deliver."},
	{ID: goLink.MetricRateLimitHit, Name: "golink_rate_limit_hit_total", Help: "Rate-limit checks that denied requests."},
}

var HistogramDefs = []HistogramDef{
	{ID: goLink.MetricNotificationLatency, Name: "golink_notification_latency_seconds", Help: "Notifier send latency histogram."},
}

// HistogramBounds are the upper bounds, in seconds, of the engine buckets.
var HistogramBounds = []string{
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"1",
	"2.5",
	"5",
	"+Inf",
}

// HistogramBoundSuffix renders HistogramBounds as metric name suffixes.
var HistogramBoundSuffix = []string{
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"1",
	"2_5",
	"5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array, zero filling.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into Prometheus style cumulative counts.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}

// Source is what both exporters read on every scrape or collection.
// *goLink.Engine satisfies it.
type Source interface {
	MetricsSnapshot() goLink.MetricsSnapshot
	AuditStats() goLink.AuditStats
	PendingCount() int
}

// StatKind tells exporters whether a stat only grows or can go down.
type StatKind int

const (
	StatCounter StatKind = iota
	StatGauge
)

// StatDef names one engine state value exported next to the counters.
type StatDef struct {
	Name  string
	Help  string
	Kind  StatKind
	Value func(Stats) int64
}

// Stats is the engine state read from a Source in one pass.
type Stats struct {
	Pending int
	Audit   goLink.AuditStats
}

// ReadStats reads the non-counter state of src.
func ReadStats(src Source) Stats {
	return Stats{
		Pending: src.PendingCount(),
		Audit:   src.AuditStats(),
	}
}

var StatDefs = []StatDef{
	{
		Name:  "golink_pending_registrations",
		Help:  "Pending registrations waiting for confirmation, unswept expired entries included.",
		Kind:  StatGauge,
		Value: func(s Stats) int64 { return int64(s.Pending) },
	},
	{
		Name:  "golink_audit_queue_depth",
		Help:  "Audit events waiting for the sink.",
		Kind:  StatGauge,
		Value: func(s Stats) int64 { return int64(s.Audit.Queued) },
	},
	{
		Name:  "golink_audit_dropped_total",
		Help:  "Dropped audit events due to dispatcher backpressure.",
		Kind:  StatCounter,
		Value: func(s Stats) int64 { return int64(s.Audit.Dropped) },
	},
	{
		Name:  "golink_audit_sink_panics_total",
		Help:  "Audit events whose sink panicked.",
		Kind:  StatCounter,
		Value: func(s Stats) int64 { return int64(s.Audit.SinkPanics) },
	},
}
