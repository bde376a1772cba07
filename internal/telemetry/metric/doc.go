// Package metric provides Prometheus metrics for ClubMesh.
//
// Metrics include:
//
//   - Token gauges and counters (active, issued, revoked, swept)
//   - Validation counters labeled by result
//   - Follow graph gauges and counters
//   - Operation latency histograms
//
// Metrics are exposed in Prometheus format via Handler.
package metric
