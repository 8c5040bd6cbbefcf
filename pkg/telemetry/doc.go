// Package telemetry provides logging, metrics and tracing for Verdant.
// Logging is structured via zerolog, metrics are exposed in Prometheus
// format, and traces are exported through OpenTelemetry (stdout or OTLP).
package telemetry
