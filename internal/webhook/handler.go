package webhook

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/ledger"
)

// SignatureHeader carries the provider's HMAC over the request body.
const SignatureHeader = "x-padipay-signature"

// Handler exposes the provider webhook endpoint.
type Handler struct {
	service *Service
}

// NewHandler constructs a webhook handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Receive processes a provider delivery. Every outcome is terminal: the
// provider gets a definitive status rather than an open connection, so its
// retry queue cannot pile up behind us.
func (h *Handler) Receive(c *fiber.Ctx) error {
	// c.Body() is the raw payload; the signature must be computed over
	// these exact bytes, never a re-serialized form.
	receipt, err := h.service.Process(c.UserContext(), c.Body(), c.Get(SignatureHeader))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidSignature):
			return fiber.NewError(http.StatusUnauthorized, "invalid signature")
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, "account not resolved")
		case errors.Is(err, ErrInvalidPayload):
			return fiber.NewError(http.StatusBadRequest, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, "webhook processing failed")
		}
	}

	message := "deposit credited"
	switch {
	case receipt.Ignored:
		message = "event ignored"
	case receipt.Duplicate:
		message = "duplicate delivery ignored"
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": message,
	})
}
