package stream

import "math"

// SyntheticAudioProvider generates the audio samples for the stream's
// audio track. Hosts inject their own implementation; the default emits
// a near-silent tone that keeps audio-expecting consumers satisfied
// without being audible.
type SyntheticAudioProvider interface {
	// SampleRate returns the samples per second per channel.
	SampleRate() int
	// Samples fills one frame of n mono samples starting at the given
	// absolute sample offset.
	Samples(offset int64, n int) []int16
}

// Near-silent tone defaults.
const (
	defaultAudioSampleRate = 48000
	defaultAudioFrequency  = 220.0
	// defaultAudioAmplitude is ~0.03% of full scale: inaudible, but
	// non-zero so the track never reads as pure digital silence.
	defaultAudioAmplitude = 10
)

// NearSilentAudio is the default SyntheticAudioProvider: a sine tone at
// an amplitude far below audibility.
type NearSilentAudio struct {
	rate      int
	freq      float64
	amplitude float64
}

// NewNearSilentAudio creates the default provider at 48kHz.
func NewNearSilentAudio() *NearSilentAudio {
	return &NearSilentAudio{
		rate:      defaultAudioSampleRate,
		freq:      defaultAudioFrequency,
		amplitude: defaultAudioAmplitude,
	}
}

// SampleRate returns the provider's sample rate.
func (a *NearSilentAudio) SampleRate() int { return a.rate }

// Samples synthesizes n sequential samples beginning at offset.
func (a *NearSilentAudio) Samples(offset int64, n int) []int16 {
	out := make([]int16, n)
	step := 2 * math.Pi * a.freq / float64(a.rate)
	for i := range out {
		out[i] = int16(a.amplitude * math.Sin(float64(offset+int64(i))*step))
	}
	return out
}
