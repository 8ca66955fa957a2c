package complexity

import (
	"image"
	"math"
	"math/rand"
)

// Adaptive blend shares: the adaptive injector applies all three
// generators scaled by these weights.
const (
	adaptiveNoiseShare     = 0.3
	adaptiveMovementShare  = 0.4
	adaptiveDitheringShare = 0.3
)

// injectNoise writes a deterministic, time-evolving smoothed value-noise
// field over the frame as a low-alpha grayscale overlay blend.
func injectNoise(img *image.RGBA, intensity, t float64) {
	if intensity <= 0 {
		return
	}
	alpha := clamp01(intensity)
	b := img.Bounds()
	const freq = 0.05 // lattice cell ≈ 20px
	z := t * 0.7

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			g := valueNoise3(float64(x)*freq, float64(y)*freq, z) * 255
			p := row[(x-b.Min.X)*4 : (x-b.Min.X)*4+3 : (x-b.Min.X)*4+3]
			for c := 0; c < 3; c++ {
				base := float64(p[c])
				p[c] = clampByte(base + (overlayBlend(base, g)-base)*alpha)
			}
		}
	}
}

// overlayBlend applies the standard "overlay" compositing curve for one
// channel, both operands on the 0..255 scale.
func overlayBlend(base, blend float64) float64 {
	if base < 128 {
		return 2 * base * blend / 255
	}
	return 255 - 2*(255-base)*(255-blend)/255
}

// valueNoise3 is smoothed 3D value noise: hashed lattice corners,
// trilinear interpolation through a smoothstep fade. Output in [0,1].
func valueNoise3(x, y, z float64) float64 {
	x0, y0, z0 := math.Floor(x), math.Floor(y), math.Floor(z)
	fx, fy, fz := smoothstep(x-x0), smoothstep(y-y0), smoothstep(z-z0)
	xi, yi, zi := int(x0), int(y0), int(z0)

	c000 := latticeHash(xi, yi, zi)
	c100 := latticeHash(xi+1, yi, zi)
	c010 := latticeHash(xi, yi+1, zi)
	c110 := latticeHash(xi+1, yi+1, zi)
	c001 := latticeHash(xi, yi, zi+1)
	c101 := latticeHash(xi+1, yi, zi+1)
	c011 := latticeHash(xi, yi+1, zi+1)
	c111 := latticeHash(xi+1, yi+1, zi+1)

	x00 := lerp(c000, c100, fx)
	x10 := lerp(c010, c110, fx)
	x01 := lerp(c001, c101, fx)
	x11 := lerp(c011, c111, fx)

	y0v := lerp(x00, x10, fy)
	y1v := lerp(x01, x11, fy)
	return lerp(y0v, y1v, fz)
}

// latticeHash maps integer lattice coordinates to a stable value in [0,1].
func latticeHash(x, y, z int) float64 {
	h := uint32(x)*374761393 + uint32(y)*668265263 + uint32(z)*2147483647
	h = (h ^ (h >> 13)) * 1274126177
	h ^= h >> 16
	return float64(h&0xffff) / 0xffff
}

func smoothstep(t float64) float64 { return t * t * (3 - 2*t) }

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// injectMovement draws small grey dots orbiting the surface center at a
// time-driven angle. Dot count scales with intensity; orbit radius is 10%
// of the smaller surface dimension.
func injectMovement(img *image.RGBA, intensity, t float64) {
	if intensity <= 0 {
		return
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	minDim := w
	if h < minDim {
		minDim = h
	}

	dots := int(intensity*20) + 2
	radius := 0.1 * float64(minDim)
	cx, cy := float64(w)/2, float64(h)/2
	alpha := clamp01(intensity)

	for i := 0; i < dots; i++ {
		angle := t + 2*math.Pi*float64(i)/float64(dots)
		x := cx + radius*math.Cos(angle)
		y := cy + radius*math.Sin(angle)
		fillDot(img, int(x), int(y), 2, 128, alpha)
	}
}

// fillDot blends a filled circle of the given grey value into the frame.
func fillDot(img *image.RGBA, cx, cy, r int, grey float64, alpha float64) {
	b := img.Bounds()
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > r*r {
				continue
			}
			x, y := cx+dx, cy+dy
			if x < b.Min.X || x >= b.Max.X || y < b.Min.Y || y >= b.Max.Y {
				continue
			}
			i := (y-b.Min.Y)*img.Stride + (x-b.Min.X)*4
			for c := 0; c < 3; c++ {
				base := float64(img.Pix[i+c])
				img.Pix[i+c] = clampByte(base + (grey-base)*alpha)
			}
		}
	}
}

// injectDithering perturbs individual pixels: each pixel is touched with
// probability intensity·0.1 and shifted by up to ±intensity·20 per
// channel, clamped to the valid range.
func injectDithering(img *image.RGBA, intensity float64, rng *rand.Rand) {
	if intensity <= 0 {
		return
	}
	prob := intensity * 0.1
	mag := intensity * 20
	b := img.Bounds()

	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := b.Min.X; x < b.Max.X; x++ {
			if rng.Float64() >= prob {
				continue
			}
			p := row[(x-b.Min.X)*4 : (x-b.Min.X)*4+3 : (x-b.Min.X)*4+3]
			for c := 0; c < 3; c++ {
				delta := (rng.Float64()*2 - 1) * mag
				p[c] = clampByte(float64(p[c]) + delta)
			}
		}
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
