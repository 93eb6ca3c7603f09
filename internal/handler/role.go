package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eduflow/eduflow-api/internal/repository"
)

// RoleHandler exposes the fixed role enum, e.g. for registration forms.
type RoleHandler struct {
	Roles *repository.RoleRepo
}

func NewRoleHandler(roles *repository.RoleRepo) *RoleHandler {
	return &RoleHandler{Roles: roles}
}

type rolePart struct {
	ID   uint8  `json:"id"`
	Name string `json:"name"`
}

// List returns all roles.  The route sits behind the response cache; the
// role set only changes by migration.
func (h *RoleHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	roles, err := h.Roles.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	out := make([]rolePart, 0, len(roles))
	for _, r := range roles {
		out = append(out, rolePart{ID: r.ID, Name: r.Name})
	}
	return c.JSON(http.StatusOK, echo.Map{"roles": out})
}
