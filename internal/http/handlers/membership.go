package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/http/middlewares"
	"github.com/dropDatabas3/memberhub/internal/membership"
	"github.com/dropDatabas3/memberhub/internal/metrics"
)

// Membership expone la postulación del usuario y la bandeja de decisión
// de los admins.
type Membership struct {
	Service *membership.Service
}

type applicationView struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Motivation string     `json:"motivation,omitempty"`
	Status     string     `json:"status"`
	Reason     string     `json:"reason,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	DecidedAt  *time.Time `json:"decided_at,omitempty"`
	DecidedBy  string     `json:"decided_by,omitempty"`
}

func toApplicationView(a *membership.Application) applicationView {
	return applicationView{
		ID:         a.ID,
		UserID:     a.UserID,
		Motivation: a.Motivation,
		Status:     a.Status,
		Reason:     a.Reason,
		CreatedAt:  a.CreatedAt,
		DecidedAt:  a.DecidedAt,
		DecidedBy:  a.DecidedBy,
	}
}

type applyRequest struct {
	Motivation string `json:"motivation"`
}

// Apply crea una postulación a miembro para el usuario autenticado.
//
//	POST /api/membership/applications
func (h *Membership) Apply(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())

	var req applyRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	app, err := h.Service.Apply(r.Context(), p.UserID, req.Motivation)
	if err != nil {
		switch {
		case errors.Is(err, membership.ErrAlreadyApplied):
			helpers.WriteError(w, r, http.StatusConflict, "ya tenés una solicitud en curso")
		case errors.Is(err, membership.ErrNotEligible):
			helpers.WriteError(w, r, http.StatusConflict, "tu rol actual no permite postular")
		default:
			helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo crear la solicitud")
		}
		return
	}
	helpers.WriteJSON(w, http.StatusCreated, toApplicationView(app))
}

// ListPending lista la bandeja de solicitudes sin decidir.
//
//	GET /api/admin/applications?limit=&offset=
func (h *Membership) ListPending(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	apps, err := h.Service.ListPending(r.Context(), limit, offset)
	if err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo listar las solicitudes")
		return
	}
	out := make([]applicationView, 0, len(apps))
	for i := range apps {
		out = append(out, toApplicationView(&apps[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"applications": out})
}

// Approve aprueba una solicitud PENDING.
//
//	POST /api/admin/applications/{id}/approve
func (h *Membership) Approve(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())

	app, err := h.Service.Approve(r.Context(), chi.URLParam(r, "id"), p.UserID)
	if err != nil {
		h.writeDecisionError(w, r, err)
		return
	}
	metrics.RecordMembershipDecision("approved")
	helpers.WriteJSON(w, http.StatusOK, toApplicationView(app))
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// Reject rechaza una solicitud PENDING con una nota.
//
//	POST /api/admin/applications/{id}/reject
func (h *Membership) Reject(w http.ResponseWriter, r *http.Request) {
	p, _ := middlewares.GetPrincipal(r.Context())

	var req rejectRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}

	app, err := h.Service.Reject(r.Context(), chi.URLParam(r, "id"), p.UserID, req.Reason)
	if err != nil {
		h.writeDecisionError(w, r, err)
		return
	}
	metrics.RecordMembershipDecision("rejected")
	helpers.WriteJSON(w, http.StatusOK, toApplicationView(app))
}

func (h *Membership) writeDecisionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, membership.ErrApplicationNotFound):
		helpers.WriteError(w, r, http.StatusNotFound, "solicitud inexistente")
	case errors.Is(err, membership.ErrNotPending):
		helpers.WriteError(w, r, http.StatusConflict, "la solicitud ya fue decidida")
	default:
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo decidir la solicitud")
	}
}
