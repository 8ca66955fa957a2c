// Package scheduler keeps frame production alive across page visibility
// changes. Exactly one of two mutually exclusive pumps drives the
// compositor at any instant: a per-frame foreground pump, or a
// fixed-period background pump for when per-frame callbacks are
// throttled. Returning to visibility triggers a bounded burst of manual
// frame kicks to flush any accumulated stall.
package scheduler
