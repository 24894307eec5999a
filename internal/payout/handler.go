package payout

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/gateway"
	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/money"
)

// Handler exposes the debit endpoints.
type Handler struct {
	service *Service
}

// NewHandler constructs a payout handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type withdrawRequest struct {
	Amount        string `json:"amount"`
	BankCode      string `json:"bank_code"`
	AccountNumber string `json:"account_number"`
	Narration     string `json:"narration"`
}

type airtimeRequest struct {
	Amount      string `json:"amount"`
	PhoneNumber string `json:"phone_number"`
	Network     string `json:"network"`
}

func userID(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}

func mapDebitError(err error) error {
	switch {
	case errors.Is(err, ErrValidation):
		return fiber.NewError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fiber.NewError(http.StatusBadRequest, "insufficient funds")
	case errors.Is(err, ledger.ErrAccountNotFound):
		return fiber.NewError(http.StatusNotFound, "account not found")
	case errors.Is(err, gateway.ErrProviderUnverifiable):
		return fiber.NewError(http.StatusBadGateway, "provider response could not be verified; no funds were debited")
	case errors.Is(err, gateway.ErrProviderFailure):
		return fiber.NewError(http.StatusBadGateway, "provider rejected the request")
	case errors.Is(err, ErrInternalInconsistency):
		return fiber.NewError(http.StatusInternalServerError, "operation flagged for manual reconciliation")
	default:
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
}

// Withdraw processes a bank withdrawal for the authenticated user.
func (h *Handler) Withdraw(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req withdrawRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	wd, err := h.service.Withdraw(c.UserContext(), uid, WithdrawInput{
		Amount:        amount,
		BankCode:      req.BankCode,
		AccountNumber: req.AccountNumber,
		Narration:     req.Narration,
	})
	if err != nil {
		return mapDebitError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "withdrawal " + wd.Status,
		"data": fiber.Map{
			"id":             wd.ID,
			"amount":         wd.Amount,
			"fee":            wd.Fee,
			"net":            wd.Net,
			"bank_code":      wd.BankCode,
			"account_number": wd.AccountNumber,
			"provider_tx_id": wd.ProviderTxID,
			"status":         wd.Status,
			"created_at":     wd.CreatedAt,
		},
	})
}

// BuyAirtime processes an airtime purchase for the authenticated user.
func (h *Handler) BuyAirtime(c *fiber.Ctx) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}
	var req airtimeRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	amount, err := money.Parse(req.Amount)
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}

	tx, err := h.service.BuyAirtime(c.UserContext(), uid, AirtimeInput{
		Amount:      amount,
		PhoneNumber: req.PhoneNumber,
		Network:     req.Network,
	})
	if err != nil {
		return mapDebitError(err)
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "airtime purchase " + tx.Status,
		"data": fiber.Map{
			"id":         tx.ID,
			"amount":     tx.Gross,
			"discount":   tx.Fee,
			"charged":    tx.Net,
			"reference":  tx.Reference,
			"status":     tx.Status,
			"created_at": tx.CreatedAt,
		},
	})
}

// Banks returns the provider's bank directory.
func (h *Handler) Banks(c *fiber.Ctx) error {
	banks, err := h.service.Banks(c.UserContext())
	if err != nil {
		return mapDebitError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "banks retrieved",
		"data":    banks,
	})
}

// ResolveDestination returns the holder name of a destination account.
func (h *Handler) ResolveDestination(c *fiber.Ctx) error {
	name, err := h.service.ResolveDestination(c.UserContext(), c.Query("bank_code"), c.Query("account_number"))
	if err != nil {
		return mapDebitError(err)
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "account resolved",
		"data":    fiber.Map{"account_name": name},
	})
}
