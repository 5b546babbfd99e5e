package middlewares

import (
	"crypto/subtle"
	"net/http"

	"github.com/dropDatabas3/memberhub/internal/identity"
)

// WithAdminAPIKey habilita el acceso de herramientas operativas (memberctl)
// a las rutas de admin: si el request trae X-Admin-API-Key correcta, se
// establece un principal sintético con rol ADMIN. Con key ausente o
// incorrecta el request sigue igual que llegó; el gate de rol de la ruta
// decide después. Con key no configurada el middleware es un no-op.
func WithAdminAPIKey(key string) Middleware {
	if key == "" {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-API-Key")
			if got == "" || subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithPrincipal(r.Context(), identity.Principal{
				UserID: "admin-api-key",
				Roles:  []identity.Role{identity.RoleAdmin},
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
