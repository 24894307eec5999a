package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/payout"
)

// RegisterPayoutRoutes wires withdrawal and airtime debit endpoints.
func RegisterPayoutRoutes(r fiber.Router, h *payout.Handler) {
	r.Post("/withdrawals", h.Withdraw)
	r.Post("/airtime", h.BuyAirtime)
	r.Get("/banks", h.Banks)
	r.Get("/banks/resolve", h.ResolveDestination)
}
