package middlewares

import (
	"net/http"
	"strings"

	"github.com/dropDatabas3/memberhub/internal/metrics"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
	"github.com/dropDatabas3/memberhub/internal/token"
)

// WithAuthentication es el filtro de identidad del gateway. NUNCA corta el
// request: su único trabajo es establecer (o no) un principal en el
// contexto. Token ausente, malformado, expirado o forjado producen lo
// mismo: el request sigue sin identidad, y la decisión de rechazar queda
// en la capa de autorización de la ruta.
//
// Validate y Parse son dos pasadas sobre el mismo token; la primera decide
// barato si vale la pena parsear, la segunda re-verifica la firma antes de
// extraer claims. Ninguna toca I/O.
func WithAuthentication(issuer *token.Issuer) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := bearerToken(r)
			if raw == "" {
				metrics.RecordTokenValidation("absent")
				next.ServeHTTP(w, r)
				return
			}

			if !issuer.Validate(raw) {
				// inválido se trata igual que ausente; el detalle ya quedó
				// logueado por el validador
				metrics.RecordTokenValidation("invalid")
				next.ServeHTTP(w, r)
				return
			}

			principal, err := issuer.Parse(raw)
			if err != nil {
				metrics.RecordTokenValidation("invalid")
				next.ServeHTTP(w, r)
				return
			}

			metrics.RecordTokenValidation("valid")
			ctx := WithPrincipal(r.Context(), principal)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(principal.UserID)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) string {
	ah := strings.TrimSpace(r.Header.Get("Authorization"))
	if ah == "" || !strings.HasPrefix(strings.ToLower(ah), "bearer ") {
		return ""
	}
	return strings.TrimSpace(ah[len("Bearer "):])
}
