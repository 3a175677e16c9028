// Package handlers agrupa os handlers HTTP operacionais que ficam atrás do gatekeeper.
package handlers

import (
	"encoding/json"
	"net/http"
)

// TestHandler responde a sondas de teste; o caminho é isento do gatekeeper.
func TestHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "Request successful"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
