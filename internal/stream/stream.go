package stream

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"stream-compositor/internal/logging"
	"stream-compositor/internal/surface"
)

// TrackState is the lifecycle state of a media track.
type TrackState int

const (
	// TrackLive means the track is producing media.
	TrackLive TrackState = iota
	// TrackEnded means the track has been stopped and released.
	TrackEnded
)

// String returns the state name.
func (s TrackState) String() string {
	if s == TrackLive {
		return "live"
	}
	return "ended"
}

// FrameListener observes presentation timestamps of delivered frames.
type FrameListener func(pts time.Duration)

// VideoTrack exposes the composited surface as a continuous sequence of
// frames. Consumers subscribe for per-frame signals; the track itself
// holds no pixel copies.
type VideoTrack struct {
	mu        sync.Mutex
	state     TrackState
	surf      *surface.Surface
	fps       int
	lastPTS   time.Duration
	frames    uint64
	nextSubID int
	subs      map[int]FrameListener
}

// NewVideoTrack binds a track to the output surface at the given rate.
func NewVideoTrack(surf *surface.Surface, fps int) *VideoTrack {
	return &VideoTrack{
		state: TrackLive,
		surf:  surf,
		fps:   fps,
		subs:  make(map[int]FrameListener),
	}
}

// State returns the track lifecycle state.
func (t *VideoTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// FPS returns the nominal frame rate.
func (t *VideoTrack) FPS() int { return t.fps }

// Surface returns the pixel surface the track is bound to.
func (t *VideoTrack) Surface() *surface.Surface { return t.surf }

// FrameCount returns the number of frames signaled so far.
func (t *VideoTrack) FrameCount() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.frames
}

// SignalFrame publishes one fully composited frame to all subscribers.
// Called by the compositor at the end of every tick; a no-op once ended.
func (t *VideoTrack) SignalFrame(pts time.Duration) {
	t.mu.Lock()
	if t.state != TrackLive {
		t.mu.Unlock()
		return
	}
	t.lastPTS = pts
	t.frames++
	listeners := make([]FrameListener, 0, len(t.subs))
	for _, fn := range t.subs {
		listeners = append(listeners, fn)
	}
	t.mu.Unlock()

	for _, fn := range listeners {
		fn(pts)
	}
}

// Subscribe registers a frame listener and returns its cancel function.
// Cancel is idempotent.
func (t *VideoTrack) Subscribe(fn FrameListener) (cancel func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.subs, id)
			t.mu.Unlock()
		})
	}
}

// Stop ends the track and drops all subscribers. Idempotent.
func (t *VideoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state == TrackEnded {
		return
	}
	t.state = TrackEnded
	t.subs = make(map[int]FrameListener)
}

// AudioTrack carries the synthesized audio of the output stream.
type AudioTrack struct {
	mu       sync.Mutex
	state    TrackState
	provider SyntheticAudioProvider
}

// NewAudioTrack binds a track to an audio provider.
func NewAudioTrack(p SyntheticAudioProvider) *AudioTrack {
	return &AudioTrack{state: TrackLive, provider: p}
}

// State returns the track lifecycle state.
func (t *AudioTrack) State() TrackState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Provider returns the synthesizer feeding this track.
func (t *AudioTrack) Provider() SyntheticAudioProvider { return t.provider }

// Stop ends the track. Idempotent.
func (t *AudioTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = TrackEnded
}

// Stream is the externally exposed continuous media object: one video
// track bound to the output surface and one synthesized near-silent audio
// track. Its identity is stable for the orchestrator session.
type Stream struct {
	id    uuid.UUID
	video *VideoTrack
	audio *AudioTrack

	mu     sync.Mutex
	active bool
}

// New assembles a stream from its tracks.
func New(video *VideoTrack, audio *AudioTrack) *Stream {
	return &Stream{
		id:     uuid.New(),
		video:  video,
		audio:  audio,
		active: true,
	}
}

// ID is the stream identity used for validation bookkeeping.
func (s *Stream) ID() uuid.UUID { return s.id }

// Video returns the video track, or nil if the stream carries none.
func (s *Stream) Video() *VideoTrack { return s.video }

// Audio returns the audio track, or nil if the stream carries none.
func (s *Stream) Audio() *AudioTrack { return s.audio }

// Active reports whether the stream has not been closed.
func (s *Stream) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Close stops both tracks and deactivates the stream. Safe to call more
// than once or from within a frame callback.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	s.mu.Unlock()

	if s.video != nil {
		s.video.Stop()
	}
	if s.audio != nil {
		s.audio.Stop()
	}
	logging.Debug("stream %s closed", s.id)
}
