package handlers

import (
	"net/http"

	"github.com/JeanGrijp/coachgate/internal/core/domain"
)

// StatusHandler descreve o limite ativo. Fica atrás do gatekeeper como qualquer rota da API.
func StatusHandler(rule domain.RateLimitRule, environment string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": environment,
			"rate_limit": map[string]int{
				"max_requests":   rule.Requests,
				"window_seconds": rule.RetryAfterSeconds(),
			},
		})
	}
}
