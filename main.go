package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"stream-compositor/internal/clock"
	"stream-compositor/internal/encode"
	"stream-compositor/internal/handlers"
	"stream-compositor/internal/logging"
	"stream-compositor/internal/memory"
	"stream-compositor/internal/middleware"
	"stream-compositor/internal/session"
	"stream-compositor/internal/source"
	"stream-compositor/internal/startup"
	"stream-compositor/internal/store"
	"stream-compositor/internal/stream"
	"stream-compositor/internal/validator"
)

func main() {
	startTime := time.Now()

	memory.ConfigureFromEnv()

	config, err := startup.LoadConfig()
	if err != nil {
		logging.Fatal("Configuration error: %v", err)
	}

	if err := encode.InitVips(); err != nil {
		logging.Warn("libvips unavailable, using fallback encoder: %v", err)
	}

	// Diagnostics store is optional: the pipeline runs without history.
	var st *store.Store
	if config.StoreEnabled {
		st, err = store.New(context.Background(), config.DatabasePath)
		if err != nil {
			logging.Warn("Diagnostics store disabled: %v", err)
			st = nil
		}
	}

	sessCfg := session.Config{
		Width:                      config.FrameWidth,
		Height:                     config.FrameHeight,
		FPS:                        config.FPS,
		CrossfadeDuration:          config.CrossfadeDuration,
		EnableComplexityManagement: config.ComplexityEnabled,
		ComplexityOptions:          config.ComplexityConfig,
	}
	if st != nil {
		sessCfg.Recorder = st
	}

	sess, err := session.New(sessCfg)
	if err != nil {
		logging.Fatal("Failed to initialize session: %v", err)
	}

	// The built-in pattern keeps the output alive until a real producer
	// registers; it also gives validation frames to count.
	pattern := source.NewPattern(config.FrameWidth, config.FrameHeight, clock.System())
	sess.RegisterSource(source.NewCanvasSource(pattern, source.HintMotion))

	sess.DeliverStream(context.Background(), func(s *stream.Stream, res validator.Result) {
		if res.Stable {
			logging.Info("Stream %s validated stable: %d frames in %v", s.ID(), res.FrameCount, res.Elapsed)
		} else {
			logging.Warn("Stream %s handed over unstable: %v", s.ID(), res.Err)
		}
	})

	h := handlers.New(sess, st, config)
	router := h.Router()
	startup.LogHTTPRoutes(router)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	loggedHandler := middleware.Logger(loggingConfig)(router)
	handler := middleware.Metrics(middleware.DefaultMetricsConfig())(loggedHandler)

	srv := &http.Server{
		Addr:        ":" + config.Port,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// WriteTimeout stays 0: the MJPEG endpoint writes for the whole
		// client session and enforces its own per-write timeout.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, sess, st)

	startup.LogServerStarted(startup.ServerConfig{
		Port:            config.Port,
		MetricsEnabled:  config.MetricsEnabled,
		StartupDuration: time.Since(startTime),
	})
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		logging.Fatal("Server error: %v", err)
	}
}

func handleShutdown(srv *http.Server, sess *session.Session, st *store.Store) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sess.Shutdown()
	startup.LogShutdownStepComplete("Session stopped")

	if err := srv.Shutdown(ctx); err != nil {
		logging.Warn("Server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("HTTP server stopped")
	}

	if st != nil {
		if err := st.Close(); err != nil {
			logging.Warn("Store close error: %v", err)
		} else {
			startup.LogShutdownStepComplete("Diagnostics store closed")
		}
	}

	encode.ShutdownVips()
	startup.LogShutdownComplete()
}
