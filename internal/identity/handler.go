package identity

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/account"
	"github.com/homefixer/homefixer/internal/apperr"
	"github.com/homefixer/homefixer/internal/auth"
	"github.com/homefixer/homefixer/internal/middleware"
	"github.com/homefixer/homefixer/internal/validate"
)

// Handler exposes the login, registration, logout and profile endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs an identity HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type sendOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type verifyOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,number"`
}

type registerOTPRequest struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,number"`
	Name  string `json:"name" validate:"omitempty,max=255"`
	Phone string `json:"phone" validate:"omitempty,number,min=10,max=20"`
	Role  string `json:"role" validate:"omitempty,oneof=CUSTOMER SERVICEMAN VENDOR"`
}

type completeRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required,number,min=10,max=20"`
	Role     string `json:"role" validate:"omitempty,oneof=CUSTOMER SERVICEMAN VENDOR"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

type logoutRequest struct {
	Refresh string `json:"refresh" validate:"required"`
}

type sessionResponse struct {
	Message string         `json:"message"`
	Role    string         `json:"role"`
	Tokens  auth.TokenPair `json:"tokens"`
}

type userSummary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

type completeResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	User    userSummary    `json:"user"`
	Tokens  auth.TokenPair `json:"tokens"`
}

type profileResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Role       string `json:"role"`
	IsVerified bool   `json:"is_verified"`
}

// LoginSendOTP handles POST /auth/login/send-otp/.
func (h *Handler) LoginSendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.LoginSendOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "OTP sent for login"})
}

// LoginVerifyOTP handles POST /auth/login/verify-otp/.
func (h *Handler) LoginVerifyOTP(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.service.LoginVerifyOTP(c.UserContext(), req.Email, req.OTP)
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{
		Message: "Login successful",
		Role:    res.Account.Role.String(),
		Tokens:  res.Tokens,
	})
}

// RegisterSendOTP handles POST /auth/register/send-otp/.
func (h *Handler) RegisterSendOTP(c *fiber.Ctx) error {
	var req sendOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.RegisterSendOTP(c.UserContext(), req.Email); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "OTP sent for registration"})
}

// RegisterVerifyOTP handles POST /auth/register/verify-otp/.
func (h *Handler) RegisterVerifyOTP(c *fiber.Ctx) error {
	var req registerOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := account.ParseRole(req.Role)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, "role: Invalid role.", err)
	}
	res, err := h.service.RegisterVerifyOTP(c.UserContext(), Registration{
		Email: req.Email,
		Code:  req.OTP,
		Name:  req.Name,
		Phone: req.Phone,
		Role:  role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(sessionResponse{
		Message: "Registration successful",
		Role:    res.Account.Role.String(),
		Tokens:  res.Tokens,
	})
}

// VerifyEmail handles POST /auth/register/verify-email/.
func (h *Handler) VerifyEmail(c *fiber.Ctx) error {
	var req verifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.VerifyEmail(c.UserContext(), req.Email, req.OTP); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"message": "Email verified"})
}

// RegisterComplete handles POST /auth/register/complete/.
func (h *Handler) RegisterComplete(c *fiber.Ctx) error {
	var req completeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := account.ParseRole(req.Role)
	if err != nil {
		return apperr.Wrap(apperr.ErrValidation, "role: Invalid role.", err)
	}
	res, err := h.service.RegisterComplete(c.UserContext(), Completion{
		Email:    req.Email,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     role,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(completeResponse{
		Success: true,
		Message: "User registered successfully",
		User: userSummary{
			ID:    res.Account.ID,
			Email: res.Account.Email,
			Role:  res.Account.Role.String(),
		},
		Tokens: res.Tokens,
	})
}

// Logout handles POST /auth/logout/.
func (h *Handler) Logout(c *fiber.Ctx) error {
	var req logoutRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.service.Logout(c.UserContext(), middleware.AccountID(c), req.Refresh); err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"success": true, "message": "Logged out successfully"})
}

// Profile handles GET /user/profile/.
func (h *Handler) Profile(c *fiber.Ctx) error {
	acc, err := h.service.Profile(c.UserContext(), middleware.AccountID(c))
	if err != nil {
		return err
	}
	return c.Status(http.StatusOK).JSON(profileResponse{
		ID:         acc.ID,
		Name:       acc.Name,
		Email:      acc.Email,
		Phone:      acc.Phone,
		Role:       acc.Role.String(),
		IsVerified: acc.Verified,
	})
}

func bind(c *fiber.Ctx, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperr.Wrap(apperr.ErrValidation, "Malformed request body", err)
	}
	normalizeRole(dst)
	return validate.Struct(dst)
}

func normalizeRole(dst any) {
	switch req := dst.(type) {
	case *registerOTPRequest:
		req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	case *completeRequest:
		req.Role = strings.ToUpper(strings.TrimSpace(req.Role))
	}
}
