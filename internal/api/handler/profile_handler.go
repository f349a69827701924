package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/element-app/backend/internal/core/ports"
)

// ProfileHandler serves the authenticated user's own profile. Identity comes
// from the context injected by the Auth middleware, never from the payload.
type ProfileHandler struct {
	users ports.UserRepository
}

func NewProfileHandler(users ports.UserRepository) *ProfileHandler {
	return &ProfileHandler{users: users}
}

type updateProfileRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Get returns the caller's profile.
//
// @Summary      Get own profile
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.User
// @Failure      401  {object}  errorResponse
// @Router       /v1/profile [get]
func (h *ProfileHandler) Get(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	user, err := h.users.FindByID(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Update changes the caller's mutable profile fields.
//
// @Summary      Update own profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  domain.User
// @Failure      401   {object}  errorResponse
// @Router       /v1/profile [put]
func (h *ProfileHandler) Update(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	user, err := h.users.UpdateProfile(c.Request().Context(), userID, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// Delete removes the caller's account.
//
// @Summary      Delete own account
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /v1/profile [delete]
func (h *ProfileHandler) Delete(c echo.Context) error {
	userID, _, err := ctxIdentity(c)
	if err != nil {
		return err
	}

	if err := h.users.Delete(c.Request().Context(), userID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
