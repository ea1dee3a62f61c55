// Package prometheus exposes engine metrics as a prometheus.Collector.
//
// Counters are named blogauth_*_total and the validate latency histogram is
// blogauth_validate_latency_seconds. Nothing is registered globally; use
// [NewCollector] with your own registry or mount [Handler].
package prometheus
