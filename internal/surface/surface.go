package surface

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync/atomic"

	"github.com/disintegration/imaging"
	xdraw "golang.org/x/image/draw"
)

// ErrInvalidDimensions indicates the surface could not be created because
// the requested dimensions are not positive. This is fatal: a session
// cannot initialize without a drawing surface.
var ErrInvalidDimensions = errors.New("surface: invalid dimensions")

// DefaultSize is the edge length of the canonical output surface.
const DefaultSize = 512

// Surface is a fixed-size RGBA pixel buffer. The compositor owns it
// exclusively and mutates it once per tick; dimensions never change for
// the lifetime of the owner.
type Surface struct {
	img     *image.RGBA
	width   int
	height  int
	scratch *image.RGBA // reused for alpha-blended scaled draws

	// gen counts completed paints. It distinguishes a surface that was
	// painted (possibly with pure black) from one still holding its
	// initial clear, and is safe to read off-tick.
	gen atomic.Uint64
}

// New creates a surface of the given dimensions, cleared to opaque black.
func New(width, height int) (*Surface, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidDimensions, width, height)
	}
	s := &Surface{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		width:  width,
		height: height,
	}
	s.Clear()
	return s, nil
}

// Width returns the surface width in pixels.
func (s *Surface) Width() int { return s.width }

// Height returns the surface height in pixels.
func (s *Surface) Height() int { return s.height }

// RGBA exposes the underlying pixel buffer. Callers must respect the
// owner's tick ordering; the buffer is not internally synchronized.
func (s *Surface) RGBA() *image.RGBA { return s.img }

// Clear fills the surface with opaque black.
func (s *Surface) Clear() {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)
}

// Fill floods the surface with a single color. Used by tests and by
// synthetic placeholder sources.
func (s *Surface) Fill(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	s.gen.Add(1)
}

// Generation returns the number of paints the surface has received.
// Zero means nothing was ever drawn; the initial clear and per-tick
// clears do not count.
func (s *Surface) Generation() uint64 { return s.gen.Load() }

// FitRect computes the centered destination rectangle for a source of the
// given intrinsic size, preserving aspect ratio with a uniform
// scale-to-fit: scale = min(surfaceW/srcW, surfaceH/srcH). The result
// never exceeds the surface bounds.
func (s *Surface) FitRect(srcW, srcH int) image.Rectangle {
	if srcW <= 0 || srcH <= 0 {
		return image.Rectangle{}
	}
	scale := float64(s.width) / float64(srcW)
	if vs := float64(s.height) / float64(srcH); vs < scale {
		scale = vs
	}
	dw := int(float64(srcW)*scale + 0.5)
	dh := int(float64(srcH)*scale + 0.5)
	if dw > s.width {
		dw = s.width
	}
	if dh > s.height {
		dh = s.height
	}
	x := (s.width - dw) / 2
	y := (s.height - dh) / 2
	return image.Rect(x, y, x+dw, y+dh)
}

// Draw scales src to fit, centers it, and composites it over the surface
// at the given alpha in [0,1]. Alpha at or below zero is a no-op.
func (s *Surface) Draw(src image.Image, alpha float64) error {
	b := src.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("surface: empty source %v", b)
	}
	if alpha <= 0 {
		return nil
	}
	if alpha > 1 {
		alpha = 1
	}

	dr := s.FitRect(b.Dx(), b.Dy())

	if alpha >= 1 {
		xdraw.ApproxBiLinear.Scale(s.img, dr, src, b, xdraw.Over, nil)
		s.gen.Add(1)
		return nil
	}

	// Scale into a scratch buffer first, then composite through a uniform
	// alpha mask. Two passes, but the scratch is reused across ticks.
	if s.scratch == nil || s.scratch.Bounds() != s.img.Bounds() {
		s.scratch = image.NewRGBA(s.img.Bounds())
	}
	clearRect(s.scratch, dr)
	xdraw.ApproxBiLinear.Scale(s.scratch, dr, src, b, xdraw.Src, nil)

	mask := image.NewUniform(color.Alpha{A: uint8(alpha*255 + 0.5)})
	draw.DrawMask(s.img, dr, s.scratch, dr.Min, mask, image.Point{}, draw.Over)
	s.gen.Add(1)
	return nil
}

// Downsample returns a bounded-resolution copy of the surface with the
// major axis scaled to at most maxDim pixels. Analysis cost stays fixed
// regardless of surface size.
func (s *Surface) Downsample(maxDim int) *image.NRGBA {
	w, h := s.width, s.height
	if w >= h {
		if w > maxDim {
			h = h * maxDim / w
			if h < 1 {
				h = 1
			}
			w = maxDim
		}
	} else {
		if h > maxDim {
			w = w * maxDim / h
			if w < 1 {
				w = 1
			}
			h = maxDim
		}
	}
	return imaging.Resize(s.img, w, h, imaging.Box)
}

// At returns the color of the pixel at (x, y).
func (s *Surface) At(x, y int) color.Color {
	return s.img.At(x, y)
}

// Snapshot returns an independent copy of the current pixels, safe to
// hand to encoders running outside the tick.
func (s *Surface) Snapshot() *image.RGBA {
	dst := image.NewRGBA(s.img.Bounds())
	copy(dst.Pix, s.img.Pix)
	return dst
}

func clearRect(img *image.RGBA, r image.Rectangle) {
	draw.Draw(img, r, image.Transparent, image.Point{}, draw.Src)
}
