// Package compositor blends registered pixel sources into the canonical
// output surface once per tick.
//
// Registering a source while another is active begins a timed linear
// crossfade (default 200ms) measured against the injected clock. A source
// that is not yet ready is polled every tick with no timeout; readiness
// deadlines belong to the stream validator, not this layer. Per-frame
// draw failures are swallowed so the pump never stops.
package compositor
