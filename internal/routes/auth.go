package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/auth"
	"github.com/homefixer/homefixer/internal/identity"
)

// RegisterAuthRoutes wires the OTP login/registration flows, token refresh and logout.
func RegisterAuthRoutes(r fiber.Router, flows *identity.Handler, tokens *auth.Handler, otpLimit, requireAuth fiber.Handler) {
	group := r.Group("/auth")

	group.Post("/login/send-otp/", otpLimit, flows.LoginSendOTP)
	group.Post("/login/verify-otp/", flows.LoginVerifyOTP)

	group.Post("/register/send-otp/", otpLimit, flows.RegisterSendOTP)
	group.Post("/register/verify-otp/", flows.RegisterVerifyOTP)
	group.Post("/register/verify-email/", flows.VerifyEmail)
	group.Post("/register/complete/", flows.RegisterComplete)

	group.Post("/token/refresh/", tokens.Refresh)
	group.Post("/logout/", requireAuth, flows.Logout)
}
