package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

// DeleteUser soft-deletes an account.  The route is admin-only; the role
// check happens in middleware.
func (h *AuthHandler) DeleteUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid user id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Auth.DeleteUser(ctx, id); err != nil {
		return respondErr(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
