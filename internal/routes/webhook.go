package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/webhook"
)

// RegisterWebhookRoutes wires the provider deposit notification endpoint.
func RegisterWebhookRoutes(r fiber.Router, h *webhook.Handler) {
	r.Post("/webhooks/deposits", h.Receive)
}
