// Package middleware disponibiliza middlewares HTTP específicos da aplicação.
package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JeanGrijp/coachgate/internal/adapters/metrics"
	"github.com/JeanGrijp/coachgate/internal/core/domain"
	"github.com/JeanGrijp/coachgate/internal/core/ports"
)

const (
	blockedClientMessage = "Direct API access not allowed"
	invalidOriginMessage = "Invalid request origin"
	rateLimitedMessage   = "Rate limit exceeded"
	internalErrorMessage = "Internal server error"
)

type GatekeeperOptions struct {
	Logger            *slog.Logger
	Metrics           *metrics.Metrics
	TrustProxyHeaders bool
}

// NewGatekeeperMiddleware avalia cada requisição antes dos handlers e decora as respostas encaminhadas.
func NewGatekeeperMiddleware(gk ports.Gatekeeper, opts GatekeeperOptions) func(http.Handler) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		if gk == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := domain.Request{
				Method:        r.Method,
				Path:          r.URL.Path,
				UserAgent:     r.Header.Get("User-Agent"),
				Authorization: r.Header.Get("Authorization"),
				Origin:        r.Header.Get("Origin"),
				Referer:       r.Header.Get("Referer"),
				ClientIP:      clientIP(r, opts.TrustProxyHeaders),
			}

			verdict, err := gk.Evaluate(r.Context(), req)
			if err != nil {
				reject(w, r, req, verdict, err, logger, opts.Metrics)
				return
			}

			if verdict.Exempt {
				opts.Metrics.ObserveDecision(metrics.OutcomeExempt)
				next.ServeHTTP(w, r)
				return
			}

			opts.Metrics.ObserveDecision(metrics.OutcomeAllowed)
			sw := &securityHeadersWriter{ResponseWriter: w, production: gk.Production()}
			next.ServeHTTP(sw, r)
			// Handler sem nenhuma escrita: o net/http ainda vai enviar 200 com estes headers.
			sw.stamp()
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, req domain.Request, verdict domain.Verdict, err error, logger *slog.Logger, m *metrics.Metrics) {
	attrs := []any{
		slog.String("request_id", RequestIDFromContext(r.Context())),
		slog.String("client_ip", req.ClientIP),
		slog.String("path", req.Path),
	}

	switch {
	case domain.IsBlockedClient(err):
		m.ObserveDecision(metrics.OutcomeBlockedClient)
		logger.Warn("request rejected", append(attrs, slog.String("reason", "blocked_client"), slog.String("user_agent", req.UserAgent))...)
		writeDetail(w, http.StatusForbidden, blockedClientMessage)
	case domain.IsInvalidOrigin(err):
		m.ObserveDecision(metrics.OutcomeInvalidOrigin)
		logger.Warn("request rejected", append(attrs, slog.String("reason", "invalid_origin"), slog.String("origin", req.Origin), slog.String("referer", req.Referer))...)
		writeDetail(w, http.StatusForbidden, invalidOriginMessage)
	case domain.IsRateLimited(err):
		m.ObserveDecision(metrics.OutcomeRateLimited)
		logger.Warn("request rejected", append(attrs, slog.String("reason", "rate_limited"), slog.Int64("count", verdict.Decision.CurrentCount))...)
		w.Header().Set("Retry-After", strconv.Itoa(verdict.Decision.AppliedRule.RetryAfterSeconds()))
		writeDetail(w, http.StatusTooManyRequests, rateLimitedMessage)
	default:
		m.ObserveDecision(metrics.OutcomeInternalError)
		logger.Error("gatekeeper failed", append(attrs, slog.String("error", err.Error()))...)
		writeDetail(w, http.StatusInternalServerError, internalErrorMessage)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
