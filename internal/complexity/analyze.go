package complexity

import (
	"image"
	"math"
)

const (
	// analysisMaxDim bounds the analysis sample so per-tick cost stays
	// fixed regardless of surface size.
	analysisMaxDim = 128

	// lowComplexityCutoff is the fixed overall score below which a frame
	// counts as encoder-degenerate. Deliberately independent from the
	// configurable MinThreshold; see Config.
	lowComplexityCutoff = 0.2
)

// Metrics is one analysis sample over the downsampled output surface.
type Metrics struct {
	// Spatial is the mean local gradient magnitude, normalized to [0,1].
	Spatial float64
	// Temporal is the mean absolute luminance delta against the previous
	// sample, normalized to [0,1]. Zero when no prior sample exists or
	// the sample sizes differ.
	Temporal float64
	// Overall is (Spatial+Temporal)/2.
	Overall float64
	// FrameVariance is the population variance of luminance / 255².
	FrameVariance float64
	// IsLow reports Overall < 0.2.
	IsLow bool
}

// Analyze scores one downsampled frame and returns the luminance plane
// for the next tick's temporal comparison. Luminance is Rec. 601 on the
// 0..255 scale.
func Analyze(img *image.NRGBA, prev []float64) (Metrics, []float64) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	lum := make([]float64, w*h)

	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+3 : x*4+3]
			lum[y*w+x] = 0.299*float64(p[0]) + 0.587*float64(p[1]) + 0.114*float64(p[2])
		}
	}

	m := Metrics{
		Spatial:       spatialScore(lum, w, h),
		Temporal:      temporalScore(lum, prev),
		FrameVariance: varianceScore(lum),
	}
	m.Overall = (m.Spatial + m.Temporal) / 2
	m.IsLow = m.Overall < lowComplexityCutoff
	return m, lum
}

// spatialScore is the mean finite-difference gradient magnitude,
// normalized by the largest possible magnitude (255·√2).
func spatialScore(lum []float64, w, h int) float64 {
	if w < 2 || h < 2 {
		return 0
	}
	var sum float64
	var n int
	for y := 0; y < h-1; y++ {
		for x := 0; x < w-1; x++ {
			i := y*w + x
			gx := lum[i+1] - lum[i]
			gy := lum[i+w] - lum[i]
			sum += math.Sqrt(gx*gx + gy*gy)
			n++
		}
	}
	return sum / float64(n) / (255 * math.Sqrt2)
}

// temporalScore is the mean absolute luminance delta against the prior
// sample, or 0 when sizes mismatch.
func temporalScore(lum, prev []float64) float64 {
	if prev == nil || len(prev) != len(lum) || len(lum) == 0 {
		return 0
	}
	var sum float64
	for i := range lum {
		sum += math.Abs(lum[i] - prev[i])
	}
	return sum / float64(len(lum)) / 255
}

// varianceScore is the population variance of luminance, normalized by
// 255².
func varianceScore(lum []float64) float64 {
	if len(lum) == 0 {
		return 0
	}
	var mean float64
	for _, l := range lum {
		mean += l
	}
	mean /= float64(len(lum))

	var v float64
	for _, l := range lum {
		d := l - mean
		v += d * d
	}
	return v / float64(len(lum)) / (255 * 255)
}
