package handlers

import (
	"net/http"

	"stream-compositor/internal/startup"
)

// GetVersion reports the build stamped in at link time.
func (h *Handlers) GetVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, startup.GetBuildInfo())
}
