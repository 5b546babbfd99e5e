package middlewares

import (
	"net/http"

	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// RequireRole exige un principal con rol mínimo min. Sin principal responde
// 401 con el shape estándar; con principal pero rol insuficiente, 403.
// Las rutas protegidas declaran su rol explícitamente; lo que no declara
// nada no se registra en el router.
func RequireRole(min identity.Role) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := GetPrincipal(r.Context())
			if !ok {
				helpers.WriteUnauthorized(w, r, "")
				return
			}
			if !p.HasAtLeast(min) {
				logger.From(r.Context()).Warn("acceso denegado por rol",
					logger.UserID(p.UserID),
					logger.Role(string(min)),
				)
				helpers.WriteForbidden(w, r, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated exige cualquier principal, sin mirar el rol.
func RequireAuthenticated() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := GetPrincipal(r.Context()); !ok {
				helpers.WriteUnauthorized(w, r, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
