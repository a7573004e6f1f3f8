// Package otel publishes authflow metrics through an OpenTelemetry Meter.
//
// [NewOTelExporter] creates one observable counter per authflow counter and
// one observable gauge per latency bucket. A single callback reads the
// coordinator snapshot on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers pass a Meter.
//   - Change coordinator state.
package otel
