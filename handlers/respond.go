package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/openclaw/clawboard/database"
	"github.com/openclaw/clawboard/openclaw"
)

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps sentinel errors onto HTTP statuses. Anything
// unrecognized is logged and reported as a 500 without leaking details.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found")
	case errors.Is(err, database.ErrValidation):
		writeError(w, http.StatusBadRequest, "Validation failed")
	case errors.Is(err, database.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict")
	case errors.Is(err, openclaw.ErrNotConfigured):
		writeError(w, http.StatusBadRequest, "OpenClaw is not configured")
	case errors.Is(err, openclaw.ErrUpstreamUnavailable):
		writeError(w, http.StatusBadGateway, "OpenClaw backend unavailable")
	default:
		log.Printf("Error handling request: %v", err)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}
