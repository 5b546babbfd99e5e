// Package handlers contiene los handlers HTTP del gateway: flujo de login
// social, perfil propio, onboarding y administración de membresías.
package handlers

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/memberhub/internal/authstate"
	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/identity/normalize"
	"github.com/dropDatabas3/memberhub/internal/metrics"
	"github.com/dropDatabas3/memberhub/internal/oauth"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
	"github.com/dropDatabas3/memberhub/internal/token"
)

// Auth maneja el flujo completo de login social: inicio, callback y los
// redirects de salida hacia el front-end.
type Auth struct {
	Providers   *oauth.Registry
	States      *authstate.Store
	Normalizers *normalize.Registry
	Users       directory.Store
	Issuer      *token.Issuer

	// SignupRole es el rol con el que nace un usuario en su primer login.
	SignupRole identity.Role

	// SuccessURL y ErrorURL son los destinos configurados del front-end.
	// SuccessURL define además el origin permitido para el redirect con
	// token: host y puerto se comparan exactos, cualquier otro destino
	// aborta el login.
	SuccessURL string
	ErrorURL   string
}

// Start inicia el handshake: persiste el estado en la cookie y redirige al
// endpoint de autorización del provider.
//
//	GET /oauth2/authorize/{provider}?return_to=/algo
func (h *Auth) Start(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	client, ok := h.Providers.Lookup(name)
	if !ok {
		helpers.WriteError(w, r, http.StatusNotFound, "provider desconocido")
		return
	}

	st, err := authstate.NewState(name, r.URL.Query().Get("return_to"))
	if err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo iniciar el login")
		return
	}
	if err := h.States.Save(w, st); err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo iniciar el login")
		return
	}

	http.Redirect(w, r, client.AuthCodeURL(st.Nonce), http.StatusFound)
}

// Callback procesa la vuelta del provider. El estado del handshake se
// consume de la cookie (y se borra, haya éxito o no: un callback usado no
// se puede repetir). Cualquier falla de negocio termina en redirect al
// error-page del front con la razón percent-encoded; nunca emitimos token
// en ese camino.
//
//	GET /oauth2/callback/{provider}?code=...&state=...
func (h *Auth) Callback(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "provider")
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Provider(name))

	client, ok := h.Providers.Lookup(name)
	if !ok {
		helpers.WriteError(w, r, http.StatusNotFound, "provider desconocido")
		return
	}

	st, ok := h.States.Remove(w, r)
	if !ok {
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "la sesión de login expiró, probá de nuevo")
		return
	}
	if st.Provider != name || st.Nonce != r.URL.Query().Get("state") {
		// state viejo, de otro provider o forjado
		log.Warn("state del handshake no coincide")
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "la sesión de login no es válida")
		return
	}

	if reason := r.URL.Query().Get("error"); reason != "" {
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "el proveedor rechazó el login: "+reason)
		return
	}

	attrs, subjectKey, err := client.FetchIdentity(ctx, r.URL.Query().Get("code"))
	if err != nil {
		log.Warn("canje de code falló", logger.Err(err))
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "no se pudo obtener el perfil del proveedor")
		return
	}

	ci, fellBack := h.Normalizers.Normalize(name, attrs, subjectKey)
	if fellBack {
		log.Warn("payload del provider sin normalizador propio, usando default")
	}
	if ci.SubjectID == "" {
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "el proveedor no devolvió un identificador")
		return
	}

	user, created, err := h.Users.Resolve(ctx, ci, h.SignupRole)
	if err != nil {
		if errors.Is(err, directory.ErrWithdrawn) {
			metrics.RecordLogin(name, "failure")
			h.redirectError(w, r, "la cuenta fue dada de baja")
			return
		}
		if errors.Is(err, directory.ErrDuplicateEmail) {
			metrics.RecordLogin(name, "failure")
			h.redirectError(w, r, "el email ya está registrado con otro proveedor")
			return
		}
		log.Error("resolución de identidad falló", logger.Err(err))
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "error interno durante el login")
		return
	}

	raw, _, err := h.Issuer.Issue(user.ID, user.Email, []identity.Role{user.Role})
	if err != nil {
		log.Error("emisión de token falló", logger.Err(err))
		metrics.RecordLogin(name, "failure")
		h.redirectError(w, r, "error interno durante el login")
		return
	}

	target, err := buildSuccessRedirect(h.SuccessURL, st.ReturnTo, raw)
	if err != nil {
		// destino fuera del origin permitido: falla de seguridad, se aborta
		// sin redirect de consuelo
		log.Error("redirect de login rechazado", logger.Err(err))
		metrics.RecordLogin(name, "failure")
		helpers.WriteError(w, r, http.StatusInternalServerError, "destino de redirección no permitido")
		return
	}

	metrics.RecordLogin(name, "success")
	log.Info("login completado",
		logger.UserID(user.ID),
		logger.Role(user.Role.String()),
		logger.Bool("created", created),
	)
	http.Redirect(w, r, target, http.StatusFound)
}

// redirectError manda al error-page del front con la razón legible en el
// query param. La razón viaja percent-encoded; acá no hay token.
func (h *Auth) redirectError(w http.ResponseWriter, r *http.Request, reason string) {
	u, err := url.Parse(h.ErrorURL)
	if err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, reason)
		return
	}
	q := u.Query()
	q.Set("error", reason)
	u.RawQuery = q.Encode()
	http.Redirect(w, r, u.String(), http.StatusFound)
}
