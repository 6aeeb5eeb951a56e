// Package instrumentation wires OpenTelemetry metrics and tracing.
//
// The provider selects a metrics exporter (prometheus, otlp, stdout)
// and an optional tracing exporter (otlp, stdout, none) from
// configuration, and exposes a Metrics recorder the rest of the
// process reports through. With instrumentation disabled every
// recorder method is a no-op, so call sites never guard on it.
package instrumentation
