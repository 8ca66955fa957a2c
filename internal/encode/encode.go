package encode

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"

	"stream-compositor/internal/logging"
	"stream-compositor/internal/metrics"
	"stream-compositor/internal/workers"
)

// DefaultQuality is the JPEG quality used for delivered frames.
const DefaultQuality = 80

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips initializes the libvips library.
// This should be called once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL.
	var vipsLogLevel vips.LogLevel
	var logHandler func(string, vips.LogLevel, string)

	switch logging.GetLevel() {
	case logging.LevelDebug:
		vipsLogLevel = vips.LogLevelInfo
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			default:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	default:
		// Anything quieter than debug: warnings and errors only.
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}

	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Conservative memory settings: frame encoding is a steady trickle,
	// not a burst workload.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: workers.ForCPU(4),
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources.
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available.
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// Encoder turns composited RGBA frames into JPEG bytes. It prefers the
// libvips path and falls back to pure-Go encoding when vips is not
// initialized or fails on a frame.
type Encoder struct {
	quality int
}

// NewEncoder creates an encoder with the given JPEG quality (1-100).
// Zero or negative means DefaultQuality.
func NewEncoder(quality int) *Encoder {
	if quality <= 0 || quality > 100 {
		quality = DefaultQuality
	}
	return &Encoder{quality: quality}
}

// Quality returns the configured JPEG quality.
func (e *Encoder) Quality() int { return e.quality }

// EncodeFrame encodes one RGBA frame to JPEG.
func (e *Encoder) EncodeFrame(img *image.RGBA) ([]byte, error) {
	if img == nil {
		return nil, fmt.Errorf("encode: nil frame")
	}

	if IsVipsAvailable() {
		data, err := e.encodeVips(img)
		if err == nil {
			metrics.FramesEncodedTotal.WithLabelValues("vips", "success").Inc()
			return data, nil
		}
		metrics.FramesEncodedTotal.WithLabelValues("vips", "error").Inc()
		logging.Debug("encode: vips path failed, falling back: %v", err)
	}

	data, err := e.encodeFallback(img)
	if err != nil {
		metrics.FramesEncodedTotal.WithLabelValues("fallback", "error").Inc()
		return nil, err
	}
	metrics.FramesEncodedTotal.WithLabelValues("fallback", "success").Inc()
	return data, nil
}

// encodeVips hands the raw pixel buffer to libvips. RGBA means 4 bands;
// the stride must be exactly width*4 for the zero-copy import.
func (e *Encoder) encodeVips(img *image.RGBA) ([]byte, error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if img.Stride != w*4 {
		return nil, fmt.Errorf("encode: unsupported stride %d for width %d", img.Stride, w)
	}

	ref, err := vips.NewImageFromMemory(img.Pix, w, h, 4)
	if err != nil {
		return nil, fmt.Errorf("vips import failed: %w", err)
	}
	defer ref.Close()

	data, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        e.quality,
		StripMetadata:  true,
		OptimizeCoding: true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}
	return data, nil
}

func (e *Encoder) encodeFallback(img *image.RGBA) ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(e.quality))
	if err != nil {
		return nil, fmt.Errorf("fallback encode failed: %w", err)
	}
	return buf.Bytes(), nil
}
