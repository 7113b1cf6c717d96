package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HandleHealth answers the platform health check.
func HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// HandleIndex describes the service for anyone poking the root URL.
func HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"name":    "Crypto Tax Calculator",
		"version": "0.1.0",
		"endpoints": map[string]string{
			"/health":       "GET - Health check",
			"/calculate":    "POST - Calculate taxes from CSV",
			"/calculations": "GET - Recent calculation audit trail",
		},
	})
}
