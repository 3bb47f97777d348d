// Package progress provides the event primitives, non-blocking hub, and
// emitter interfaces the orchestrator uses to report job lifecycle updates.
// Events are batched on a background goroutine and fanned out to pluggable
// sinks: structured logs, Prometheus metrics, per-owner subscriber channels,
// or an external message topic. Delivery is best-effort; a slow or absent
// consumer never blocks job execution.
package progress
