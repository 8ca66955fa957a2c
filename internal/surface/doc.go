// Package surface provides the canonical output pixel surface.
//
// A Surface is a fixed-size RGBA buffer owned by exactly one compositor.
// It offers aspect-preserving centered draws with per-draw alpha, bounded
// downsampling for analysis, and snapshots for encoders. It performs no
// locking of its own; the owner's single-ticker discipline is the
// synchronization model.
package surface
