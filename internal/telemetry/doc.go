// Package telemetry wires the OpenTelemetry SDK for traces and metrics.
// It is internal to the module.
package telemetry
