// Package otel publishes engine metrics through an OpenTelemetry Meter.
//
// [NewExporter] registers one Int64ObservableCounter per engine counter, a
// gauge per latency bucket and a gauge for the revocation store's degraded
// state. A single callback reads the engine snapshot on each collection.
// The caller owns the MeterProvider.
package otel
