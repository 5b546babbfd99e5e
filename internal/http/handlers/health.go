package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/dropDatabas3/memberhub/internal/http/helpers"
)

// Health expone liveness y readiness. Ready consulta las dependencias
// registradas (hoy: ping a Postgres).
type Health struct {
	Checks map[string]func(ctx context.Context) error
}

// Live responde siempre 200: el proceso está arriba.
//
//	GET /healthz
func (h *Health) Live(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready verifica dependencias con timeout corto.
//
//	GET /readyz
func (h *Health) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	detail := make(map[string]string, len(h.Checks))
	for name, check := range h.Checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			detail[name] = err.Error()
			continue
		}
		detail[name] = "ok"
	}
	helpers.WriteJSON(w, status, map[string]any{
		"status": http.StatusText(status),
		"checks": detail,
	})
}
