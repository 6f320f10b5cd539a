// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Stream status and status transitions
//   - Message rates and raw (undecodable) frame counts
//   - Provider-to-receipt latency
//   - Scheduled reconnects and their backoff delays
package metrics
