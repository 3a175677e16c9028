package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/JeanGrijp/coachgate/internal/adapters/metrics"
)

// AccessLog registra cada requisição e alimenta as métricas HTTP.
func AccessLog(logger *slog.Logger, m *metrics.Metrics, trustProxy bool) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			latency := time.Since(start)

			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", status),
				slog.Duration("latency", latency),
				slog.Int("bytes", ww.BytesWritten()),
				slog.String("client_ip", clientIP(r, trustProxy)),
				slog.String("user_agent", r.UserAgent()),
				slog.String("request_id", RequestIDFromContext(r.Context())),
			)

			if m != nil {
				code := strconv.Itoa(status)
				m.RequestCount.WithLabelValues(r.Method, code).Inc()
				m.RequestDuration.WithLabelValues(r.Method, code).Observe(latency.Seconds())
			}
		})
	}
}
