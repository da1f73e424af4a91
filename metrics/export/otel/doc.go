// Package otel exposes engine metrics through OpenTelemetry observable
// instruments.
//
// [NewExporter] registers one Int64ObservableCounter per counter family, with
// an outcome attribute per series, plus one Int64ObservableGauge per
// histogram bucket. A single callback reads the engine snapshot on each
// collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider; callers supply the Meter.
//   - Mutate engine state.
package otel
