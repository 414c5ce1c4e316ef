// Package prometheus serves goSession engine metrics in the Prometheus text
// exposition format.
//
// Counters are named gosession_<metric>_total and request latency is the
// gosession_request_latency_seconds histogram. When the source also reports
// store statistics, gosession_live_sessions carries the backend as a label.
// Nothing is registered globally; callers mount Handler themselves.
package prometheus
