// Package prometheus renders engine metrics in Prometheus text exposition
// format.
//
// Counter families are named authcore_*_total and split by an outcome label;
// the single histogram is authcore_authenticate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry; callers mount the Handler.
//   - Mutate engine state.
package prometheus
