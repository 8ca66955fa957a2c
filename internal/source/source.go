package source

import (
	"fmt"
	"image"
)

// Kind tags the flavor of a pixel producer.
type Kind int

const (
	// KindCanvas is a drawing-surface producer (always has current data).
	KindCanvas Kind = iota
	// KindVideo is a playback producer (may not have current data yet).
	KindVideo
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindCanvas:
		return "canvas"
	case KindVideo:
		return "video"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ContentHint describes the dominant character of a source's pixels,
// informing downstream encoder tuning.
type ContentHint int

const (
	// HintNone leaves encoder tuning to defaults.
	HintNone ContentHint = iota
	// HintDetail marks detail-heavy content (text, line art).
	HintDetail
	// HintMotion marks motion-heavy content (camera feeds).
	HintMotion
)

// String returns the wire name of the hint.
func (h ContentHint) String() string {
	switch h {
	case HintDetail:
		return "detail"
	case HintMotion:
		return "motion"
	default:
		return "none"
	}
}

// Source is the shared capability interface over the canvas-like and
// video-like variants. Implementations hold a non-owning reference to the
// caller's pixel producer; the caller keeps ownership.
type Source interface {
	// Kind reports the variant tag.
	Kind() Kind
	// Hint reports the content hint supplied at registration.
	Hint() ContentHint
	// Ready reports whether the producer has valid, non-zero dimensions
	// and live data. Not-ready is a polled steady state, never an error.
	Ready() bool
	// Frame returns the producer's current pixels. Only meaningful when
	// Ready; a draw failure here is transient and the frame is skipped.
	Frame() (image.Image, error)
}

// Canvas is the capability a drawing-surface provider must supply. The
// core only queries dimensions and reads pixels.
type Canvas interface {
	Width() int
	Height() int
	Image() image.Image
}

// Video is the capability a device-capture provider must supply. The
// core only queries dimensions and readiness.
type Video interface {
	Width() int
	Height() int
	// HasCurrentData reports whether a decoded frame is available.
	HasCurrentData() bool
	Frame() image.Image
}

// Pausable is optionally implemented by Video producers whose playback
// can stall while the page is hidden; the scheduler resumes them on
// return to visibility.
type Pausable interface {
	Paused() bool
	Resume() error
}

// CanvasSource adapts a Canvas into a Source.
type CanvasSource struct {
	canvas Canvas
	hint   ContentHint
}

// NewCanvasSource wraps a caller-owned canvas producer.
func NewCanvasSource(c Canvas, hint ContentHint) *CanvasSource {
	return &CanvasSource{canvas: c, hint: hint}
}

// Kind returns KindCanvas.
func (s *CanvasSource) Kind() Kind { return KindCanvas }

// Hint returns the registered content hint.
func (s *CanvasSource) Hint() ContentHint { return s.hint }

// Ready requires non-zero dimensions.
func (s *CanvasSource) Ready() bool {
	return s.canvas != nil && s.canvas.Width() > 0 && s.canvas.Height() > 0
}

// Frame returns the canvas pixels.
func (s *CanvasSource) Frame() (image.Image, error) {
	img := s.canvas.Image()
	if img == nil {
		return nil, fmt.Errorf("source: canvas produced no image")
	}
	return img, nil
}

// VideoSource adapts a Video into a Source.
type VideoSource struct {
	video Video
	hint  ContentHint
}

// NewVideoSource wraps a caller-owned video producer.
func NewVideoSource(v Video, hint ContentHint) *VideoSource {
	return &VideoSource{video: v, hint: hint}
}

// Kind returns KindVideo.
func (s *VideoSource) Kind() Kind { return KindVideo }

// Hint returns the registered content hint.
func (s *VideoSource) Hint() ContentHint { return s.hint }

// Ready requires current data plus non-zero intrinsic dimensions.
func (s *VideoSource) Ready() bool {
	return s.video != nil && s.video.HasCurrentData() &&
		s.video.Width() > 0 && s.video.Height() > 0
}

// Frame returns the most recent decoded frame.
func (s *VideoSource) Frame() (image.Image, error) {
	img := s.video.Frame()
	if img == nil {
		return nil, fmt.Errorf("source: video produced no frame")
	}
	return img, nil
}

// Underlying exposes the wrapped producer for capability probing
// (Pausable in particular).
func (s *VideoSource) Underlying() Video { return s.video }
