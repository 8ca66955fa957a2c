package complexity

import (
	"image"
	"math/rand"
	"sync"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/surface"
)

// InjectionType selects the synthetic-detail generator. The zero value is
// Adaptive, the configuration default.
type InjectionType int

const (
	// Adaptive blends all three generators (30% noise, 40% movement,
	// 30% dithering).
	Adaptive InjectionType = iota
	// Noise writes a smoothed time-evolving value-noise overlay.
	Noise
	// Movement orbits small grey dots around the surface center.
	Movement
	// Dithering perturbs individual pixels probabilistically.
	Dithering
)

// String returns the configuration name of the injection type.
func (it InjectionType) String() string {
	switch it {
	case Noise:
		return "noise"
	case Movement:
		return "movement"
	case Dithering:
		return "dithering"
	case Adaptive:
		return "adaptive"
	default:
		return "unknown"
	}
}

// ParseInjectionType maps a configuration string to an InjectionType,
// defaulting to Adaptive.
func ParseInjectionType(s string) InjectionType {
	switch s {
	case "noise":
		return Noise
	case "movement":
		return Movement
	case "dithering":
		return Dithering
	default:
		return Adaptive
	}
}

// Config tunes the controller. Immutable for a monitoring session.
//
// MinThreshold and the fixed isLow cutoff (0.2) are deliberately separate
// tunables: isLow gates on the raw score, MinThreshold widens the
// injection band below it. Near-boundary behavior (e.g. target 0.3,
// measured 0.18) follows the isLow gate.
type Config struct {
	// TargetComplexity is the overall score injection steers toward.
	TargetComplexity float64
	// Type selects the generator.
	Type InjectionType
	// MinThreshold is the score below which injection always engages.
	MinThreshold float64
	// MaxIntensity clamps the injection strength.
	MaxIntensity float64
	// AnalysisInterval is the analyze+inject period.
	AnalysisInterval time.Duration
}

// DefaultConfig returns the standard tuning.
func DefaultConfig() Config {
	return Config{
		TargetComplexity: 0.3,
		Type:             Adaptive,
		MinThreshold:     0.15,
		MaxIntensity:     0.2,
		AnalysisInterval: 100 * time.Millisecond,
	}
}

// withDefaults fills zero values so a partially specified Config behaves.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.TargetComplexity <= 0 {
		c.TargetComplexity = d.TargetComplexity
	}
	if c.MinThreshold <= 0 {
		c.MinThreshold = d.MinThreshold
	}
	if c.MaxIntensity <= 0 {
		c.MaxIntensity = d.MaxIntensity
	}
	if c.AnalysisInterval <= 0 {
		c.AnalysisInterval = d.AnalysisInterval
	}
	return c
}

// historyLimit bounds the metric ring used for smoothing.
const historyLimit = 30

// minInjectionIntensity is the floor below which injection is not worth
// the perturbation.
const minInjectionIntensity = 0.01

// Controller scores the composited output and injects synthetic detail
// when the score is too low for downstream encoders. State machine:
// Idle → Monitoring → Idle, nothing else.
//
// The controller has no scheduler of its own: the owner calls Tick once
// per composited frame, after drawing and before consumers are signaled,
// so injected detail is part of every delivered frame and the analyzer
// measures what consumers actually receive. Analysis itself is rescored
// only once per AnalysisInterval.
type Controller struct {
	clk clock.Clock

	mu         sync.Mutex // protects the fields below
	monitoring bool
	surf       *surface.Surface
	cfg        Config
	prev       []float64
	history    []Metrics
	rng        *rand.Rand
	epoch      time.Time
	lastScore  time.Time
	intensity  float64
}

// Option configures a Controller.
type Option func(*Controller)

// WithRandSource seeds the dithering generator deterministically.
func WithRandSource(src rand.Source) Option {
	return func(c *Controller) { c.rng = rand.New(src) }
}

// New creates an idle controller.
func New(clk clock.Clock, opts ...Option) *Controller {
	c := &Controller{
		clk:   clk,
		epoch: clk.Now(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.rng == nil {
		c.rng = rand.New(rand.NewSource(clk.Now().UnixNano()))
	}
	return c
}

// StartMonitoring arms analyze+inject over the surface for subsequent
// ticks. Idempotent: a second call while monitoring is a no-op.
func (c *Controller) StartMonitoring(surf *surface.Surface, cfg Config) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.monitoring {
		return
	}
	c.monitoring = true
	c.surf = surf
	c.cfg = cfg.withDefaults()
	c.prev = nil
	c.intensity = 0
	c.lastScore = time.Time{}
	logging.Info("complexity: monitoring started (target=%.2f type=%s interval=%v)",
		c.cfg.TargetComplexity, c.cfg.Type, c.cfg.AnalysisInterval)
}

// StopMonitoring disarms the controller. Safe when already idle. The
// metric history survives so diagnostics can read the last session.
func (c *Controller) StopMonitoring() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.monitoring {
		return
	}
	c.monitoring = false
	logging.Info("complexity: monitoring stopped")
}

// Monitoring reports whether analyze+inject is armed.
func (c *Controller) Monitoring() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.monitoring
}

// History returns a copy of the bounded metric history, newest last.
func (c *Controller) History() []Metrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Metrics, len(c.history))
	copy(out, c.history)
	return out
}

// SmoothedOverall is the mean overall score across the history ring.
func (c *Controller) SmoothedOverall() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return smoothed(c.history)
}

func smoothed(history []Metrics) float64 {
	if len(history) == 0 {
		return 0
	}
	var sum float64
	for _, m := range history {
		sum += m.Overall
	}
	return sum / float64(len(history))
}

// Tick runs one controller step: it perturbs the freshly composited
// surface at the current intensity, then — when the analysis interval has
// elapsed — rescores the perturbed frame and derives the next intensity.
// The owner serializes Tick with every other surface mutation and calls
// it before signaling the frame, so the score reflects delivered pixels.
// Reports whether the frame was perturbed. No-op while idle.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	if !c.monitoring {
		c.mu.Unlock()
		return false
	}
	surf, cfg := c.surf, c.cfg
	intensity := c.intensity
	prev := c.prev
	rng := c.rng
	now := c.clk.Now()
	due := c.lastScore.IsZero() || now.Sub(c.lastScore) >= cfg.AnalysisInterval
	t := now.Sub(c.epoch).Seconds()
	c.mu.Unlock()

	applied := inject(surf.RGBA(), cfg.Type, intensity, t, rng)
	if !due {
		return applied
	}

	m, lum := Analyze(surf.Downsample(analysisMaxDim), prev)
	next := nextIntensity(cfg, m)

	c.mu.Lock()
	if !c.monitoring {
		c.mu.Unlock()
		return applied
	}
	c.lastScore = now
	c.prev = lum
	c.intensity = next
	c.history = append(c.history, m)
	if len(c.history) > historyLimit {
		c.history = c.history[len(c.history)-historyLimit:]
	}
	sm := smoothed(c.history)
	c.mu.Unlock()

	metrics.ComplexityOverall.Set(sm)
	if applied {
		logging.Debug("complexity: injected (overall=%.3f smoothed=%.3f next=%.3f)",
			m.Overall, sm, next)
	}
	return applied
}

// nextIntensity derives the injection strength from the latest measure:
// min((target−overall)·2, MaxIntensity), zero when the score meets the
// target, sits above the low-complexity band, or falls below the floor
// worth applying.
func nextIntensity(cfg Config, m Metrics) float64 {
	if m.Overall >= cfg.TargetComplexity {
		return 0
	}
	if !m.IsLow && m.Overall >= cfg.MinThreshold {
		return 0
	}
	intensity := (cfg.TargetComplexity - m.Overall) * 2
	if intensity > cfg.MaxIntensity {
		intensity = cfg.MaxIntensity
	}
	if intensity <= minInjectionIntensity {
		return 0
	}
	return intensity
}

// inject applies the configured generator at the given intensity.
// Reports whether the frame was touched.
func inject(img *image.RGBA, typ InjectionType, intensity, t float64, rng *rand.Rand) bool {
	if intensity <= minInjectionIntensity {
		return false
	}
	switch typ {
	case Noise:
		injectNoise(img, intensity, t)
		metrics.ComplexityInjectionsTotal.WithLabelValues("noise").Inc()
	case Movement:
		injectMovement(img, intensity, t)
		metrics.ComplexityInjectionsTotal.WithLabelValues("movement").Inc()
	case Dithering:
		injectDithering(img, intensity, rng)
		metrics.ComplexityInjectionsTotal.WithLabelValues("dithering").Inc()
	case Adaptive:
		injectNoise(img, intensity*adaptiveNoiseShare, t)
		injectMovement(img, intensity*adaptiveMovementShare, t)
		injectDithering(img, intensity*adaptiveDitheringShare, rng)
		metrics.ComplexityInjectionsTotal.WithLabelValues("noise").Inc()
		metrics.ComplexityInjectionsTotal.WithLabelValues("movement").Inc()
		metrics.ComplexityInjectionsTotal.WithLabelValues("dithering").Inc()
	}
	metrics.ComplexityInjectionIntensity.Observe(intensity)
	return true
}
