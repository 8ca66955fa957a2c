// Package source models caller-supplied pixel producers as a tagged
// variant over canvas-like and video-like elements, with a shared
// readiness gate: a source is usable once it has valid non-zero
// dimensions and (for video) live decoded data.
package source
