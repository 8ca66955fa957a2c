// Package metrics defines the Prometheus instruments for the compositor
// pipeline: tick and crossfade counters, complexity injection telemetry,
// pump switches, validation outcomes, and HTTP traffic. All instruments
// are registered at import time via promauto and share the
// stream_compositor_ namespace.
package metrics
