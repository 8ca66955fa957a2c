// Package stream models the exposed media object: one video track bound
// to the canonical output surface plus one synthesized near-silent audio
// track. Frame delivery is signal-based; consumers subscribe to the video
// track and read the surface when signaled, so no pixels are copied per
// subscriber.
package stream
