package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/homefixer/homefixer/internal/identity"
	"github.com/homefixer/homefixer/internal/wallet"
)

// RegisterUserRoutes wires the authenticated account endpoints.
func RegisterUserRoutes(r fiber.Router, flows *identity.Handler, wallets *wallet.Handler, requireAuth fiber.Handler) {
	group := r.Group("/user", requireAuth)
	group.Get("/profile/", flows.Profile)
	group.Get("/wallet/", wallets.Mine)
}
