package validator

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/stream"
	"stream-compositor/internal/surface"
)

func newTestStream(t *testing.T) *stream.Stream {
	t.Helper()
	surf, err := surface.New(32, 32)
	if err != nil {
		t.Fatalf("surface.New: %v", err)
	}
	return stream.New(stream.NewVideoTrack(surf, 30), stream.NewAudioTrack(stream.NewNearSilentAudio()))
}

// waitPending spins until the manual clock holds n scheduled events, so
// the test can advance time only after the validator armed its timer.
func waitPending(t *testing.T, clk *clock.Manual, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for clk.Pending() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d pending clock events (have %d)", n, clk.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestValidateSucceedsOnDistinctFrames(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)
	s := newTestStream(t)

	resCh := make(chan Result, 1)
	go func() {
		resCh <- v.Validate(context.Background(), s, Options{MinStableFrames: 5, Timeout: 3 * time.Second, RequireAudio: true})
	}()
	waitPending(t, clk, 1)

	for i := 1; i <= 5; i++ {
		s.Video().SignalFrame(time.Duration(i) * 33 * time.Millisecond)
	}

	res := <-resCh
	if !res.Stable {
		t.Fatalf("Validate = %+v, want stable", res)
	}
	if res.FrameCount != 5 {
		t.Fatalf("FrameCount = %d, want 5", res.FrameCount)
	}
	if res.Err != nil {
		t.Fatalf("Err = %v, want nil", res.Err)
	}
}

func TestValidateIgnoresRepeatedTimestamps(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)
	s := newTestStream(t)

	resCh := make(chan Result, 1)
	go func() {
		resCh <- v.Validate(context.Background(), s, Options{MinStableFrames: 3, Timeout: 500 * time.Millisecond})
	}()
	waitPending(t, clk, 1)

	// The same presentation timestamp over and over is a stalled stream.
	for i := 0; i < 10; i++ {
		s.Video().SignalFrame(42 * time.Millisecond)
	}
	clk.Advance(500 * time.Millisecond)

	res := <-resCh
	if res.Stable {
		t.Fatal("stalled stream validated as stable")
	}
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.FrameCount != 1 {
		t.Fatalf("FrameCount = %d, want 1 distinct timestamp", res.FrameCount)
	}
}

// A stream producing nothing within the timeout resolves as "timeout"
// with the elapsed time matching the deadline.
func TestValidateTimeout(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)
	s := newTestStream(t)

	resCh := make(chan Result, 1)
	go func() {
		resCh <- v.Validate(context.Background(), s, Options{MinStableFrames: 5, Timeout: 500 * time.Millisecond})
	}()
	waitPending(t, clk, 1)
	clk.Advance(600 * time.Millisecond)

	res := <-resCh
	if res.Stable {
		t.Fatal("timed-out validation reported stable")
	}
	if !errors.Is(res.Err, ErrTimeout) {
		t.Fatalf("Err = %v, want ErrTimeout", res.Err)
	}
	if res.Elapsed != 500*time.Millisecond {
		t.Fatalf("Elapsed = %v, want exactly the 500ms deadline", res.Elapsed)
	}
}

// Two validations in quick succession for the same stream identity yield
// exactly one "aborted" result and one terminal result.
func TestValidateLastWriterWins(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)
	s := newTestStream(t)

	first := make(chan Result, 1)
	go func() {
		first <- v.Validate(context.Background(), s, Options{MinStableFrames: 5, Timeout: 3 * time.Second})
	}()
	waitPending(t, clk, 1)

	second := make(chan Result, 1)
	go func() {
		second <- v.Validate(context.Background(), s, Options{MinStableFrames: 5, Timeout: 3 * time.Second})
	}()

	// The superseded call resolves as aborted, never left pending.
	res1 := <-first
	if !errors.Is(res1.Err, ErrAborted) {
		t.Fatalf("first result = %+v, want aborted", res1)
	}

	// The first call's timer is released by the time its result arrives;
	// wait for the second call's timer to be armed.
	waitPending(t, clk, 1)
	for i := 1; i <= 5; i++ {
		s.Video().SignalFrame(time.Duration(i) * 33 * time.Millisecond)
	}

	res2 := <-second
	if !res2.Stable {
		t.Fatalf("second result = %+v, want stable", res2)
	}
	if errors.Is(res2.Err, ErrAborted) {
		t.Fatal("both validations aborted")
	}
}

func TestValidateRejections(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)

	t.Run("inactive stream", func(t *testing.T) {
		s := newTestStream(t)
		s.Close()
		res := v.Validate(context.Background(), s, DefaultOptions())
		if !errors.Is(res.Err, ErrStreamInactive) {
			t.Fatalf("Err = %v, want ErrStreamInactive", res.Err)
		}
	})

	t.Run("missing audio with RequireAudio", func(t *testing.T) {
		surf, _ := surface.New(16, 16)
		s := stream.New(stream.NewVideoTrack(surf, 30), nil)
		res := v.Validate(context.Background(), s, DefaultOptions())
		if !errors.Is(res.Err, ErrNoAudioTrack) {
			t.Fatalf("Err = %v, want ErrNoAudioTrack", res.Err)
		}
	})

	t.Run("missing audio allowed when not required", func(t *testing.T) {
		surf, _ := surface.New(16, 16)
		s := stream.New(stream.NewVideoTrack(surf, 30), nil)
		resCh := make(chan Result, 1)
		go func() {
			resCh <- v.Validate(context.Background(), s, Options{MinStableFrames: 1, Timeout: time.Second, RequireAudio: false})
		}()
		waitPending(t, clk, 1)
		s.Video().SignalFrame(time.Millisecond)
		if res := <-resCh; !res.Stable {
			t.Fatalf("result = %+v, want stable", res)
		}
	})

	t.Run("video track not live", func(t *testing.T) {
		s := newTestStream(t)
		s.Video().Stop()
		res := v.Validate(context.Background(), s, DefaultOptions())
		if !errors.Is(res.Err, ErrVideoNotLive) {
			t.Fatalf("Err = %v, want ErrVideoNotLive", res.Err)
		}
	})

	t.Run("rejections start no timer", func(t *testing.T) {
		s := newTestStream(t)
		s.Close()
		v.Validate(context.Background(), s, DefaultOptions())
		if clk.Pending() != 0 {
			t.Fatalf("rejection left %d timers pending", clk.Pending())
		}
	})
}

func TestValidateContextCancellation(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)
	s := newTestStream(t)

	ctx, cancel := context.WithCancel(context.Background())
	resCh := make(chan Result, 1)
	go func() {
		resCh <- v.Validate(ctx, s, DefaultOptions())
	}()
	waitPending(t, clk, 1)
	cancel()

	res := <-resCh
	if res.Stable || !errors.Is(res.Err, ErrAborted) {
		t.Fatalf("result = %+v, want aborted on context cancel", res)
	}
}

func TestWaitForCanvasStreamStability(t *testing.T) {
	clk := clock.NewManual()
	v := New(clk)

	t.Run("painted surface passes", func(t *testing.T) {
		surf, _ := surface.New(32, 32)
		surf.Fill(color.RGBA{R: 40, G: 40, B: 40, A: 255})

		done := make(chan bool, 1)
		go func() {
			done <- v.WaitForCanvasStreamStability(context.Background(), surf, 30)
		}()
		waitPending(t, clk, 1)
		clk.Advance(100 * time.Millisecond)
		if !<-done {
			t.Fatal("painted surface failed the pre-check")
		}
	})

	// A frame that is legitimately pure black still counts as painted;
	// only a surface nothing ever drew to fails.
	t.Run("surface painted pure black passes", func(t *testing.T) {
		surf, _ := surface.New(32, 32)
		surf.Fill(color.RGBA{A: 255})

		done := make(chan bool, 1)
		go func() {
			done <- v.WaitForCanvasStreamStability(context.Background(), surf, 30)
		}()
		waitPending(t, clk, 1)
		clk.Advance(100 * time.Millisecond)
		if !<-done {
			t.Fatal("surface painted pure black failed the pre-check")
		}
	})

	t.Run("unpainted surface fails", func(t *testing.T) {
		surf, _ := surface.New(32, 32)
		done := make(chan bool, 1)
		go func() {
			done <- v.WaitForCanvasStreamStability(context.Background(), surf, 30)
		}()
		waitPending(t, clk, 1)
		clk.Advance(100 * time.Millisecond)
		if <-done {
			t.Fatal("unpainted surface passed the pre-check")
		}
	})
}
