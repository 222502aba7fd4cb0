// Package tracing emits OpenTelemetry spans for driver ticks.  Spans are
// no-ops until a provider is installed with Setup or Install.
package tracing
