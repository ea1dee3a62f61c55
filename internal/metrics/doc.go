// Package metrics keeps the engine's counters in cache-line padded atomics
// and the validate latency in eight fixed buckets (5ms up to +Inf). Recording
// never allocates. Exporters read [Snapshot] values.
package metrics
