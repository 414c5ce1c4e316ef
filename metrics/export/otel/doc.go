// Package otel publishes goSession engine metrics as OpenTelemetry
// observable instruments.
//
// Instrument names match the Prometheus exporter. The latency histogram is
// flattened into one cumulative gauge per bucket plus a count gauge, since
// engine snapshots carry bucket counts only.
package otel
