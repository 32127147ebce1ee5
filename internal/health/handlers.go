package health

import (
	"encoding/json"
	"net/http"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
)

var shuttingDown atomic.Bool

// SetReady toggles readiness. The binary flips it off before shutting down.
func SetReady(ready bool) {
	shuttingDown.Store(!ready)
}

// Catalog reports the item codes that currently have a pricing rule.
type Catalog interface {
	Codes() []string
}

// Handler exposes HTTP handlers for health endpoints.
type Handler struct {
	Catalog Catalog
}

// Live reports liveness status.
func (h Handler) Live(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ready reports readiness: the process is not shutting down and at least one
// pricing rule is loaded.
func (h Handler) Ready(w http.ResponseWriter, _ *http.Request) {
	if shuttingDown.Load() {
		http.Error(w, "shutting down", http.StatusServiceUnavailable)
		return
	}
	if h.Catalog == nil {
		http.Error(w, "pricing rules unavailable", http.StatusServiceUnavailable)
		return
	}
	codes := h.Catalog.Codes()
	status := map[string]any{
		"rules": len(codes),
		"codes": codes,
	}
	w.Header().Set("Content-Type", "application/json")
	if len(codes) == 0 {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}
	_ = json.NewEncoder(w).Encode(status)
}

// Router mounts the health endpoints and, when non-nil, the metrics handler.
func Router(h Handler, metrics http.Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/health/live", h.Live)
	r.Get("/health/ready", h.Ready)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	return r
}
