// Package tracing integrates OpenTelemetry with the execution context so
// that draining deferred work shows up as spans.  Without a configured
// provider every span is a no-op.
package tracing
