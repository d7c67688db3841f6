// Package prometheus renders goLink engine metrics in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] reads an [goLink.Engine] and exposes an
// [http.Handler]. Counter names are golink_*_total; the single histogram is
// golink_notification_latency_seconds. Gauges golink_pending_registrations
// and golink_audit_queue_depth report live engine state.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
