package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/issue-desk/internal/api/dto"
	"github.com/spec-kit/issue-desk/internal/auth"
	"github.com/spec-kit/issue-desk/internal/service"
	apperrors "github.com/spec-kit/issue-desk/pkg/util"
)

// UsersHandler exposes profile and password endpoints.
type UsersHandler struct {
	auth *service.AuthService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(authService *service.AuthService) *UsersHandler {
	return &UsersHandler{auth: authService}
}

// GetProfile GET /users/:id.
func (h *UsersHandler) GetProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.auth.GetProfile(c.Context(), principal.User, id)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// UpdateProfile PUT /users/:id.
func (h *UsersHandler) UpdateProfile(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	user, err := h.auth.UpdateProfile(c.Context(), principal.User, id, req.Name)
	if err != nil {
		return err
	}
	return c.JSON(userResponse(user))
}

// ChangePassword PUT /users/:id/password.
func (h *UsersHandler) ChangePassword(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}

	var req dto.ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.auth.ChangePassword(c.Context(), principal.User, id, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"message": "password updated"})
}
