// Package sinks contains the progress.Sink implementations shipped with the
// service: structured logging, Prometheus metrics, and the terminal-event
// publisher bridge.
package sinks
