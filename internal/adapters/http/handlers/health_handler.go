package handlers

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"
)

// Pinger é implementado pelos storages que dependem de um serviço externo.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	ready  atomic.Bool
	pinger Pinger
}

func NewHealth(pinger Pinger) *Health {
	h := &Health{pinger: pinger}
	h.ready.Store(true)
	return h
}

func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

func (h *Health) Liveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Health) Readiness(w http.ResponseWriter, r *http.Request) {
	if !h.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
		return
	}
	if h.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.pinger.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "storage_unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
