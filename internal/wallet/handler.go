package wallet

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/padipay/padipay/internal/gateway"
	"github.com/padipay/padipay/internal/ledger"
)

// Handler exposes wallet HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a wallet HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func authedUser(c *fiber.Ctx) (string, error) {
	uid, _ := c.Locals("user_id").(string)
	if uid == "" {
		return "", fiber.NewError(http.StatusUnauthorized, "authentication required")
	}
	return uid, nil
}

// Create provisions the wallet account for the authenticated user.
func (h *Handler) Create(c *fiber.Ctx) error {
	uid, err := authedUser(c)
	if err != nil {
		return err
	}

	acct, err := h.service.Create(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return fiber.NewError(http.StatusConflict, "account already exists")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"success": true,
		"message": "account created",
		"data": fiber.Map{
			"user_id":    acct.UserID,
			"balance":    acct.Balance,
			"created_at": acct.CreatedAt,
		},
	})
}

// Statement returns balance and history for the authenticated user.
func (h *Handler) Statement(c *fiber.Ctx) error {
	uid, err := authedUser(c)
	if err != nil {
		return err
	}

	st, err := h.service.Statement(c.UserContext(), uid)
	if err != nil {
		if errors.Is(err, ledger.ErrAccountNotFound) {
			return fiber.NewError(http.StatusNotFound, "account not found")
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "account retrieved",
		"data": fiber.Map{
			"balance":         st.Account.Balance,
			"virtual_account": virtualAccountJSON(st.Account.VirtualAccount),
			"transactions":    st.Transactions,
			"withdrawals":     st.Withdrawals,
		},
	})
}

type generateRequest struct {
	AccountName string `json:"account_name"`
}

// GenerateVirtualAccount binds a provider deposit account to the user.
func (h *Handler) GenerateVirtualAccount(c *fiber.Ctx) error {
	uid, err := authedUser(c)
	if err != nil {
		return err
	}
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	if req.AccountName == "" {
		return fiber.NewError(http.StatusBadRequest, "account_name is required")
	}

	binding, err := h.service.GenerateVirtualAccount(c.UserContext(), uid, req.AccountName)
	if err != nil {
		switch {
		case errors.Is(err, ledger.ErrAccountNotFound):
			return fiber.NewError(http.StatusNotFound, "account not found")
		case errors.Is(err, gateway.ErrProviderFailure), errors.Is(err, gateway.ErrProviderUnverifiable):
			return fiber.NewError(http.StatusBadGateway, "provider could not reserve an account")
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}

	return c.Status(http.StatusOK).JSON(fiber.Map{
		"success": true,
		"message": "virtual account ready",
		"data":    virtualAccountJSON(binding),
	})
}

func virtualAccountJSON(v ledger.VirtualAccount) fiber.Map {
	if !v.Bound() {
		return nil
	}
	return fiber.Map{
		"bank_name":      v.BankName,
		"account_number": v.AccountNumber,
		"account_name":   v.AccountName,
		"reference":      v.Reference,
	}
}
