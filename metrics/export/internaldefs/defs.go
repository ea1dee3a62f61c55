package internaldefs

import (
	"github.com/MrEthical07/blogauth"
)

// CounterDef names one engine counter for export.
type CounterDef struct {
	ID   blogauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for export.
type HistogramDef struct {
	ID   blogauth.MetricID
	Name string
	Help string
}

const (
	AuditDroppedName = "blogauth_audit_dropped_total"
	AuditDroppedHelp = "Audit events dropped due to dispatcher backpressure."

	StoreDegradedName = "blogauth_revocation_store_degraded"
	StoreDegradedHelp = "1 while revocation runs on the process-local fallback."
)

var CounterDefs = []CounterDef{
	{ID: blogauth.MetricLoginSuccess, Name: "blogauth_login_success_total", Help: "Successful logins."},
	{ID: blogauth.MetricLoginFailure, Name: "blogauth_login_failure_total", Help: "Failed logins."},
	{ID: blogauth.MetricRefreshSuccess, Name: "blogauth_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: blogauth.MetricRefreshFailure, Name: "blogauth_refresh_failure_total", Help: "Failed refresh attempts."},
	{ID: blogauth.MetricRefreshReuseDetected, Name: "blogauth_refresh_reuse_detected_total", Help: "Refresh tokens presented after rotation."},
	{ID: blogauth.MetricRefreshGraceAccepted, Name: "blogauth_refresh_grace_accepted_total", Help: "Reused refresh tokens accepted inside the grace window."},
	{ID: blogauth.MetricLogout, Name: "blogauth_logout_total", Help: "Logout operations."},
	{ID: blogauth.MetricTokenRevoked, Name: "blogauth_token_revoked_total", Help: "Token ids written to the revocation store."},
	{ID: blogauth.MetricValidateSuccess, Name: "blogauth_validate_success_total", Help: "Accepted access tokens."},
	{ID: blogauth.MetricValidateFailure, Name: "blogauth_validate_failure_total", Help: "Rejected access tokens."},
	{ID: blogauth.MetricValidateRevoked, Name: "blogauth_validate_revoked_total", Help: "Access tokens rejected as revoked."},
	{ID: blogauth.MetricStoreDegraded, Name: "blogauth_store_degraded_total", Help: "Transitions to the process-local revocation fallback."},
	{ID: blogauth.MetricStoreRecovered, Name: "blogauth_store_recovered_total", Help: "Transitions back to the shared revocation store."},
}

var HistogramDefs = []HistogramDef{
	{ID: blogauth.MetricValidateLatency, Name: "blogauth_validate_latency_seconds", Help: "Access token validation latency."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds. The engine
// keeps one extra overflow bucket beyond the last bound.
var HistogramUpperBounds = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5}

// HistogramBoundSuffix names each bucket, overflow included, for exporters
// without native histogram support.
var HistogramBoundSuffix = []string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

const bucketCount = 8

// NormalizeBuckets pads or truncates raw to the engine's bucket count.
func NormalizeBuckets(raw []uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals. The last
// element is the sample count.
func CumulativeBuckets(raw [bucketCount]uint64) [bucketCount]uint64 {
	var out [bucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
