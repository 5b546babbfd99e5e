package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/http/middlewares"
	"github.com/dropDatabas3/memberhub/internal/membership"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// Users maneja el perfil propio: consulta, onboarding y baja.
type Users struct {
	Directory  directory.Store
	Membership *membership.Service
}

// userView es la proyección pública de un usuario.
type userView struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	BirthDate   string    `json:"birth_date,omitempty"`
	Gender      string    `json:"gender,omitempty"`
	Role        string    `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
}

func toUserView(u *directory.User) userView {
	return userView{
		ID:          u.ID,
		Provider:    u.Provider,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Phone:       u.Phone,
		BirthDate:   u.BirthDate,
		Gender:      u.Gender,
		Role:        u.Role.String(),
		CreatedAt:   u.CreatedAt,
	}
}

// Me devuelve el perfil del usuario autenticado.
//
//	GET /api/users/me
func (h *Users) Me(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())
	u, err := h.Directory.FindByID(r.Context(), p.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			// token válido de una cuenta que ya no existe
			helpers.WriteUnauthorized(w, r, "la cuenta ya no está activa")
			return
		}
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo leer el perfil")
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toUserView(u))
}

// Withdraw da de baja la cuenta propia (soft delete). El token vigente
// sigue siendo criptográficamente válido hasta expirar, pero la cuenta ya
// no resuelve.
//
//	DELETE /api/users/me
func (h *Users) Withdraw(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())
	if err := h.Directory.SoftDelete(r.Context(), p.UserID); err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo dar de baja la cuenta")
		return
	}
	logger.From(r.Context()).Info("cuenta dada de baja", logger.UserID(p.UserID))
	w.WriteHeader(http.StatusNoContent)
}

type onboardingRequest struct {
	Nickname      string `json:"nickname"`
	Phone         string `json:"phone"`
	BirthDate     string `json:"birth_date"`
	Gender        string `json:"gender"`
	AgreedToTerms bool   `json:"agreed_to_terms"`
}

// Onboard completa la activación de una cuenta GUEST.
//
//	POST /api/users/me/onboarding
func (h *Users) Onboard(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())

	var req onboardingRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	if req.BirthDate != "" {
		if _, err := time.Parse("2006-01-02", req.BirthDate); err != nil {
			helpers.WriteError(w, r, http.StatusBadRequest, "birth_date debe ser YYYY-MM-DD")
			return
		}
	}

	u, err := h.Membership.Onboard(r.Context(), p.UserID, membership.OnboardingInput{
		Nickname:      req.Nickname,
		Phone:         req.Phone,
		BirthDate:     req.BirthDate,
		Gender:        req.Gender,
		AgreedToTerms: req.AgreedToTerms,
	})
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			helpers.WriteUnauthorized(w, r, "la cuenta ya no está activa")
			return
		}
		helpers.WriteError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	helpers.WriteJSON(w, http.StatusOK, toUserView(u))
}
