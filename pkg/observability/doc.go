/*
Package observability provides metrics, tracing and audit hooks for weave runs.

Metrics are exported in the Prometheus format and implement runner.Metrics.
Tracing installs an OpenTelemetry SDK tracer provider whose spans are
written by the stdout exporter. AuditHooks logs the run lifecycle through
slog.
*/
package observability
