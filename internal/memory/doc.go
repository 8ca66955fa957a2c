// Package memory configures GOMEMLIMIT from container limits so the GC
// leaves headroom for the non-heap allocations of a frame pipeline
// (libvips buffers in particular).
package memory
