package handlers

import (
	"encoding/json"
	"net/http"

	"stream-compositor/internal/logging"
)

// respondJSON writes v with the given status code. An encode failure is
// only logged: the status line is already on the wire by then.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("encoding JSON response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, message string, status int) {
	respondJSON(w, status, map[string]string{"error": message})
}

func writeJSONStatus(w http.ResponseWriter, status string) {
	respondJSON(w, http.StatusOK, map[string]string{"status": status})
}
