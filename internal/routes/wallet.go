package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/wallet"
)

// RegisterWalletRoutes wires account provisioning and statement endpoints.
func RegisterWalletRoutes(r fiber.Router, h *wallet.Handler) {
	r.Post("/wallet", h.Create)
	r.Get("/wallet", h.Statement)
	r.Post("/wallet/virtual-account", h.GenerateVirtualAccount)
}
