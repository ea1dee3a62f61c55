// Package audit buffers session lifecycle events and delivers them to a Sink
// on a background goroutine. Which events exist, and when they are emitted,
// is decided by the engine.
package audit
