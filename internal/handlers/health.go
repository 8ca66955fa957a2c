package handlers

import (
	"net/http"
	"runtime"

	"stream-compositor/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`

	// Pipeline state
	StreamActive bool   `json:"streamActive"`
	FrameCount   uint64 `json:"frameCount"`
	Monitoring   bool   `json:"complexityMonitoring"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	strm := h.session.Stream()
	ready := strm.Active() && strm.Video().FrameCount() > 0

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		StreamActive: strm.Active(),
		FrameCount:   strm.Video().FrameCount(),
		Monitoring:   h.session.Controller().Monitoring(),
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}

	response.Status = statusHealthy
	code := http.StatusOK
	if !ready {
		response.Status = statusStarting
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, response)
}

// LivenessCheck answers 200 whenever the process is serving at all.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}
	writeJSONStatus(w, "alive")
}

// ReadinessCheck returns 200 only once the pipeline has composited at
// least one frame onto the live stream.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	strm := h.session.Stream()
	if strm.Active() && strm.Video().FrameCount() > 0 {
		writeJSONStatus(w, "ready")
		return
	}
	respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
