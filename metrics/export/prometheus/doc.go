// Package prometheus renders authflow metrics in the Prometheus text format.
//
// [NewPrometheusExporter] reads a [authflow.Coordinator] snapshot on every
// scrape. Counters are named authflow_*_total and the submission latency
// histogram is authflow_submit_latency_seconds.
//
// # What this package must NOT do
//
//   - Register anything in a global registry. Callers mount Handler.
//   - Change coordinator state.
package prometheus
