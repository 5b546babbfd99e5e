package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// WithRecover atrapa pánicos del handler y responde 500 con el shape de
// error estándar. El pánico se loguea con request id, nunca llega al
// cliente.
func WithRecover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.From(r.Context()).Error("panic recuperado",
						logger.RequestID(w.Header().Get("X-Request-ID")),
						logger.Any("recover", rec),
					)
					helpers.WriteError(w, r, http.StatusInternalServerError, "error interno")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
