package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stream-compositor/internal/encode"
	"stream-compositor/internal/session"
	"stream-compositor/internal/startup"
	"stream-compositor/internal/store"
)

type Handlers struct {
	session *session.Session
	store   *store.Store // nil when diagnostics persistence is disabled
	encoder *encode.Encoder
	config  *startup.Config
}

func New(sess *session.Session, st *store.Store, config *startup.Config) *Handlers {
	return &Handlers{
		session: sess,
		store:   st,
		encoder: encode.NewEncoder(config.JPEGQuality),
		config:  config,
	}
}

// Router builds the full route table.
func (h *Handlers) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/stream.mjpeg", h.StreamMJPEG).Methods(http.MethodGet).Name("stream")
	r.HandleFunc("/healthz", h.HealthCheck).Methods(http.MethodGet).Name("health")
	r.HandleFunc("/livez", h.LivenessCheck).Methods(http.MethodGet, http.MethodHead).Name("liveness")
	r.HandleFunc("/readyz", h.ReadinessCheck).Methods(http.MethodGet).Name("readiness")
	r.HandleFunc("/version", h.GetVersion).Methods(http.MethodGet).Name("version")
	r.HandleFunc("/api/stats", h.GetStats).Methods(http.MethodGet).Name("stats")
	r.HandleFunc("/api/visibility", h.SetVisibility).Methods(http.MethodPost).Name("visibility")

	if h.config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet).Name("metrics")
	}

	return r
}
