// Package revocation records the ids of tokens that must no longer be honored.
//
// Entries are keyed by token id and expire together with the token they
// describe, so the set never holds more than one entry per rotated token that
// is still inside its validity window.
//
// Two implementations satisfy [Store]: [Redis], shared by every server
// instance, and [Memory], local to one process. [Failover] combines them and
// keeps serving from memory while Redis is unreachable. That degraded mode only
// detects reuse within a single process.
package revocation
