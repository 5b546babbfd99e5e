// Package router arma el árbol de rutas del gateway y aplica la política
// de acceso: /oauth2/** y /login/** siempre públicos, el resto denegado
// por defecto y habilitado ruta por ruta con su rol mínimo.
package router

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/memberhub/internal/http/handlers"
	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	mw "github.com/dropDatabas3/memberhub/internal/http/middlewares"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/metrics"
	"github.com/dropDatabas3/memberhub/internal/rate"
	"github.com/dropDatabas3/memberhub/internal/token"
)

// Deps contiene todo lo que el router necesita para armar el pipeline.
type Deps struct {
	Auth       *handlers.Auth
	Users      *handlers.Users
	Membership *handlers.Membership
	AdminUsers *handlers.AdminUsers
	Health     *handlers.Health

	Issuer      *token.Issuer
	AdminAPIKey string

	// LoginLimiter, si está, frena el inicio de login por IP.
	LoginLimiter rate.Limiter

	// MetricsHandler es el handler de /metrics (nil deshabilita la ruta).
	MetricsHandler http.Handler
}

// New construye el handler raíz con el pipeline completo.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	// pipeline global: request id primero (todo lo demás loguea con él),
	// autenticación al final (establece identidad, nunca corta)
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(),
		mw.WithRecover(),
		mw.WithSecurityHeaders(),
		metrics.WithHTTP,
		mw.WithAdminAPIKey(d.AdminAPIKey),
		mw.WithAuthentication(d.Issuer),
	)

	// ───── rutas públicas ─────
	r.Get("/healthz", d.Health.Live)
	r.Get("/readyz", d.Health.Ready)
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	loginStart := mw.ChainFunc(d.Auth.Start,
		mw.WithRateLimit(d.LoginLimiter, mw.IPOnlyRateKey, "login"))
	r.Method(http.MethodGet, "/oauth2/authorize/{provider}", loginStart)
	r.Method(http.MethodGet, "/login/{provider}", loginStart)
	r.Get("/oauth2/callback/{provider}", d.Auth.Callback)

	// ───── rutas protegidas: cada grupo declara su rol mínimo ─────
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAuthenticated())
		r.Get("/api/users/me", d.Users.Me)
		r.Delete("/api/users/me", d.Users.Withdraw)
		r.Post("/api/users/me/onboarding", d.Users.Onboard)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(identity.RoleUser))
		r.Post("/api/membership/applications", d.Membership.Apply)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(identity.RoleAdmin))
		r.Get("/api/admin/applications", d.Membership.ListPending)
		r.Post("/api/admin/applications/{id}/approve", d.Membership.Approve)
		r.Post("/api/admin/applications/{id}/reject", d.Membership.Reject)
		r.Get("/api/admin/users", d.AdminUsers.List)
		r.Put("/api/admin/users/{id}/role", d.AdminUsers.SetRole)
	})

	// default-deny: lo que no está habilitado arriba no existe para un
	// anónimo (401) y es 404 para un autenticado. Los prefijos de login
	// son públicos siempre, ahí un path desconocido es 404 a secas.
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		public := strings.HasPrefix(req.URL.Path, "/oauth2/") || strings.HasPrefix(req.URL.Path, "/login/")
		if _, ok := mw.GetPrincipal(req.Context()); !ok && !public {
			helpers.WriteUnauthorized(w, req, "")
			return
		}
		helpers.WriteError(w, req, http.StatusNotFound, "ruta inexistente")
	})

	return r
}
