package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/comunidadlabs/community-auth/internal/core/domain"
	"github.com/comunidadlabs/community-auth/internal/core/normalize"
	"github.com/comunidadlabs/community-auth/internal/core/ports"
)

// UsersHandler serves the member directory and role administration.
type UsersHandler struct {
	users ports.UserService
}

func NewUsersHandler(users ports.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

type updateRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=super_admin board_member community_member"`
}

// List returns every community member as a raw record.
//
// @Summary      List users
// @Tags         users
// @Produce      json
// @Success      200  {array}   domain.RawUserRecord
// @Failure      401  {object}  map[string]string
// @Failure      403  {object}  map[string]string
// @Router       /users [get]
func (h *UsersHandler) List(c echo.Context) error {
	records, err := h.users.ListUsers(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, records)
}

// UpdateRole promotes or demotes a member. Super admin only; the RBAC
// middleware enforces that before the handler runs.
//
// @Summary      Update a user's role
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        id    path      string             true  "User id"
// @Param        body  body      updateRoleRequest  true  "New role"
// @Success      200   {object}  domain.RawUserRecord
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /users/{id}/role [patch]
func (h *UsersHandler) UpdateRole(c echo.Context) error {
	callerID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateRoleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	role := normalize.Role(req.Role)
	if string(role) != req.Role {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown role")
	}

	targetID := c.Param("id")
	if targetID == callerID && role != domain.RoleSuperAdmin {
		// a super admin cannot revoke their own access
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "cannot demote yourself")
	}

	record, err := h.users.UpdateUserRole(c.Request().Context(), targetID, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, record)
}
