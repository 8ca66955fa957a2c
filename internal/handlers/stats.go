package handlers

import (
	"net/http"

	"stream-compositor/internal/store"
)

const recentLimit = 20

// StatsResponse aggregates live pipeline state with persisted history.
type StatsResponse struct {
	SessionID       string  `json:"sessionId"`
	StreamActive    bool    `json:"streamActive"`
	FrameCount      uint64  `json:"frameCount"`
	Monitoring      bool    `json:"complexityMonitoring"`
	SmoothedOverall float64 `json:"smoothedComplexity"`

	Validations       *store.ValidationStats   `json:"validations,omitempty"`
	RecentValidations []store.ValidationRecord `json:"recentValidations,omitempty"`
	RecentComplexity  []store.ComplexityRecord `json:"recentComplexity,omitempty"`
}

// GetStats returns the pipeline status plus recent diagnostics history.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	strm := h.session.Stream()
	resp := StatsResponse{
		SessionID:       h.session.ID().String(),
		StreamActive:    strm.Active(),
		FrameCount:      strm.Video().FrameCount(),
		Monitoring:      h.session.Controller().Monitoring(),
		SmoothedOverall: h.session.Controller().SmoothedOverall(),
	}

	if h.store != nil {
		if vs, err := h.store.Stats(r.Context()); err == nil {
			resp.Validations = &vs
		}
		if recs, err := h.store.RecentValidations(r.Context(), recentLimit); err == nil {
			resp.RecentValidations = recs
		}
		if recs, err := h.store.RecentComplexitySamples(r.Context(), recentLimit); err == nil {
			resp.RecentComplexity = recs
		}
	}

	w.Header().Set("Cache-Control", "no-cache")
	respondJSON(w, http.StatusOK, resp)
}
