package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/memberhub/internal/directory"
	"github.com/dropDatabas3/memberhub/internal/http/helpers"
	"github.com/dropDatabas3/memberhub/internal/http/middlewares"
	"github.com/dropDatabas3/memberhub/internal/identity"
	"github.com/dropDatabas3/memberhub/internal/membership"
	"github.com/dropDatabas3/memberhub/internal/observability/logger"
)

// AdminUsers expone la administración de cuentas: listado y override
// manual de rol. El override es la única vía de promoción a ADMIN.
type AdminUsers struct {
	Directory directory.Store
	Roles     membership.RoleUpdater
}

// List devuelve las cuentas activas paginadas.
//
//	GET /api/admin/users?limit=&offset=
func (h *AdminUsers) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	users, err := h.Directory.List(r.Context(), limit, offset)
	if err != nil {
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo listar usuarios")
		return
	}
	out := make([]userView, 0, len(users))
	for i := range users {
		out = append(out, toUserView(&users[i]))
	}
	helpers.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}

type setRoleRequest struct {
	Role string `json:"role"`
}

// SetRole pisa el rol de una cuenta, fuera de la máquina de estados de
// membership. Queda registrado quién lo hizo.
//
//	PUT /api/admin/users/{id}/role
func (h *AdminUsers) SetRole(w http.ResponseWriter, r *http.Request) {
	var req setRoleRequest
	if !helpers.ReadJSON(w, r, &req) {
		return
	}
	role, ok := identity.ParseRole(req.Role)
	if !ok {
		helpers.WriteError(w, r, http.StatusBadRequest, "rol desconocido")
		return
	}

	id := chi.URLParam(r, "id")
	if err := h.Roles.UpdateRole(r.Context(), id, role); err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			helpers.WriteError(w, r, http.StatusNotFound, "usuario inexistente")
			return
		}
		helpers.WriteError(w, r, http.StatusInternalServerError, "no se pudo actualizar el rol")
		return
	}

	p, _ := middlewares.GetPrincipal(r.Context())
	logger.From(r.Context()).Info("override de rol aplicado",
		logger.UserID(id),
		logger.Role(role.String()),
		logger.String("by", p.UserID),
	)
	w.WriteHeader(http.StatusNoContent)
}
