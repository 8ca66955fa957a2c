package handlers

import (
	"encoding/json"
	"net/http"

	"stream-compositor/internal/logging"
)

// visibilityRequest mirrors the page visibility event a browser client
// reports: hidden pages run the throttle-resistant background pump.
type visibilityRequest struct {
	Visible bool `json:"visible"`
}

// SetVisibility switches the session between foreground and background
// frame pumps.
func (h *Handlers) SetVisibility(w http.ResponseWriter, r *http.Request) {
	var req visibilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	h.session.SetVisible(req.Visible)
	logging.Debug("visibility set to %v via API", req.Visible)
	writeJSONStatus(w, "ok")
}
