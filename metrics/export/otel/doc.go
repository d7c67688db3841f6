// Package otel publishes goLink engine metrics through an OpenTelemetry meter.
//
// [NewOTelExporter] registers one Int64ObservableCounter per engine counter and
// one gauge per cumulative histogram bucket, plus the pending and audit queue
// gauges. A single callback reads the snapshot, audit stats and pending count
// on each collection cycle, so the exporter adds no work to the link flows.
//
// # What this package must NOT do
//
//   - Configure a MeterProvider or exporter pipeline; callers own that.
//   - Mutate engine state.
package otel
