package stream

import (
	"testing"
	"time"

	"stream-compositor/internal/surface"
)

func newTestStream(t *testing.T) *Stream {
	t.Helper()
	surf, err := surface.New(32, 32)
	if err != nil {
		t.Fatalf("surface.New: %v", err)
	}
	return New(NewVideoTrack(surf, 30), NewAudioTrack(NewNearSilentAudio()))
}

func TestNewStreamIsActiveWithLiveTracks(t *testing.T) {
	s := newTestStream(t)
	if !s.Active() {
		t.Fatal("fresh stream not active")
	}
	if s.Video().State() != TrackLive {
		t.Fatalf("video track state = %v, want live", s.Video().State())
	}
	if s.Audio().State() != TrackLive {
		t.Fatalf("audio track state = %v, want live", s.Audio().State())
	}
}

func TestStreamIdentitiesAreDistinct(t *testing.T) {
	a := newTestStream(t)
	b := newTestStream(t)
	if a.ID() == b.ID() {
		t.Fatal("two streams share an identity")
	}
}

func TestSignalFrameReachesSubscribers(t *testing.T) {
	s := newTestStream(t)

	var got []time.Duration
	cancel := s.Video().Subscribe(func(pts time.Duration) {
		got = append(got, pts)
	})
	defer cancel()

	s.Video().SignalFrame(33 * time.Millisecond)
	s.Video().SignalFrame(66 * time.Millisecond)

	if len(got) != 2 || got[0] != 33*time.Millisecond || got[1] != 66*time.Millisecond {
		t.Fatalf("subscriber saw %v, want [33ms 66ms]", got)
	}
	if s.Video().FrameCount() != 2 {
		t.Fatalf("FrameCount = %d, want 2", s.Video().FrameCount())
	}
}

func TestSubscribeCancelIsIdempotent(t *testing.T) {
	s := newTestStream(t)
	count := 0
	cancel := s.Video().Subscribe(func(time.Duration) { count++ })

	s.Video().SignalFrame(1 * time.Millisecond)
	cancel()
	cancel()
	s.Video().SignalFrame(2 * time.Millisecond)

	if count != 1 {
		t.Fatalf("listener fired %d times, want 1", count)
	}
}

func TestCloseStopsTracksAndIsIdempotent(t *testing.T) {
	s := newTestStream(t)

	fired := false
	s.Video().Subscribe(func(time.Duration) { fired = true })

	s.Close()
	s.Close()

	if s.Active() {
		t.Fatal("stream active after Close")
	}
	if s.Video().State() != TrackEnded || s.Audio().State() != TrackEnded {
		t.Fatal("tracks not ended after Close")
	}

	s.Video().SignalFrame(time.Millisecond)
	if fired {
		t.Fatal("ended track still delivered frames")
	}
}

func TestCloseFromWithinFrameCallback(t *testing.T) {
	s := newTestStream(t)
	s.Video().Subscribe(func(time.Duration) {
		s.Close()
	})
	// Must not deadlock or panic.
	s.Video().SignalFrame(time.Millisecond)
	if s.Active() {
		t.Fatal("stream still active after in-callback Close")
	}
}

func TestNearSilentAudio(t *testing.T) {
	p := NewNearSilentAudio()
	if p.SampleRate() != 48000 {
		t.Fatalf("SampleRate = %d, want 48000", p.SampleRate())
	}

	samples := p.Samples(0, 4800)
	if len(samples) != 4800 {
		t.Fatalf("len(samples) = %d, want 4800", len(samples))
	}

	var nonZero bool
	for _, v := range samples {
		if v > defaultAudioAmplitude || v < -defaultAudioAmplitude {
			t.Fatalf("sample %d exceeds the near-silent amplitude bound", v)
		}
		if v != 0 {
			nonZero = true
		}
	}
	if !nonZero {
		t.Fatal("near-silent audio is digital silence")
	}

	// Continuity across frames: offset-based synthesis must be stateless.
	a := p.Samples(100, 10)
	b := p.Samples(100, 10)
	for i := range a {
		if a[i] != b[i] {
			t.Fatal("Samples not deterministic for the same offset")
		}
	}
}
