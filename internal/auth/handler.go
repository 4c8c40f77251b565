package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/validate"
)

// Handler exposes the token refresh endpoint.
type Handler struct {
	svc *Service
}

// NewHandler builds the token HTTP handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type refreshRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

// Refresh issues a new access token from a valid refresh token.
func (h *Handler) Refresh(c *fiber.Ctx) error {
	var req refreshRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "Malformed request body", err)
	}
	if err := validate.Struct(&req); err != nil {
		return err
	}
	access, err := h.svc.Refresh(c.UserContext(), req.Refresh)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"access": access})
}
