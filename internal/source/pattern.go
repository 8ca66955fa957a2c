package source

import (
	"image"
	"math"
	"time"

	"stream-compositor/internal/clock"
)

// Pattern is a built-in animated canvas producer: a slowly shifting
// gradient with a sweeping bar. It keeps the pipeline visibly alive when
// no external source has been registered yet.
type Pattern struct {
	w, h  int
	clk   clock.Clock
	epoch time.Time
}

// NewPattern creates an animated test pattern of the given size.
func NewPattern(w, h int, clk clock.Clock) *Pattern {
	return &Pattern{w: w, h: h, clk: clk, epoch: clk.Now()}
}

func (p *Pattern) Width() int  { return p.w }
func (p *Pattern) Height() int { return p.h }

// Image renders the pattern for the current instant.
func (p *Pattern) Image() image.Image {
	t := p.clk.Now().Sub(p.epoch).Seconds()
	img := image.NewRGBA(image.Rect(0, 0, p.w, p.h))

	phase := t * 0.5
	barX := int((math.Sin(t*0.8) + 1) / 2 * float64(p.w-1))

	for y := 0; y < p.h; y++ {
		for x := 0; x < p.w; x++ {
			i := img.PixOffset(x, y)
			fx := float64(x) / float64(p.w)
			fy := float64(y) / float64(p.h)
			img.Pix[i] = uint8(96 + 96*math.Sin(2*math.Pi*(fx+phase)))
			img.Pix[i+1] = uint8(96 + 96*math.Sin(2*math.Pi*(fy-phase)))
			img.Pix[i+2] = uint8(64 + 64*math.Sin(2*math.Pi*(fx+fy)))
			img.Pix[i+3] = 255
		}
	}

	// Sweeping vertical bar keeps temporal complexity above zero.
	for y := 0; y < p.h; y++ {
		for x := barX - 1; x <= barX+1; x++ {
			if x < 0 || x >= p.w {
				continue
			}
			i := img.PixOffset(x, y)
			img.Pix[i] = 230
			img.Pix[i+1] = 230
			img.Pix[i+2] = 230
		}
	}

	return img
}
