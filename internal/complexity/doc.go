// Package complexity keeps the composited output perceptually busy
// enough that downstream video encoders do not collapse into degenerate
// static-frame bitrate behavior.
//
// A Controller is driven by its owner once per composited frame, after
// drawing and before consumers are signaled. Each tick it perturbs the
// frame with bounded synthetic detail when the last score was too low:
// smoothed value noise, orbiting movement dots, pixel dithering, or an
// adaptive blend of the three. Once per analysis interval it downsamples
// the (already perturbed) surface and rescores its spatial and temporal
// complexity. Injection intensity is driven by the gap to the configured
// target and clamped to MaxIntensity.
package complexity
