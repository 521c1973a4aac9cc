// Package metrics provides Prometheus instrumentation for message
// formatting and context compression. It is internal to the module.
package metrics
