// Package otel provides an OpenTelemetry observer plugin for the safecall
// library. It emits span events (wrapper creation, cancellation, calls)
// with low overhead.
package otel
