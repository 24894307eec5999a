package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/money"
)

var (
	// ErrInvalidSignature indicates the delivery failed HMAC verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidPayload indicates the body was signed correctly but could
	// not be decoded or is missing required fields.
	ErrInvalidPayload = errors.New("invalid webhook payload")
)

// Deposit-confirmation event types this deployment recognizes. Anything
// else is acknowledged and ignored.
const (
	EventTransactionSuccessful = "transaction.successful"
	EventReservedAccountCredit = "reserved_account.credit"
)

// Event is the provider's funding notification. Amounts decode from JSON
// numbers or strings without passing through float64.
type Event struct {
	Event         string          `json:"event"`
	AccountNumber string          `json:"account_number"`
	Amount        decimal.Decimal `json:"amount"`
	Reference     string          `json:"reference"`
	Timestamp     int64           `json:"timestamp"`
}

// FeePolicy computes the platform's cut of an inbound deposit. Percent is
// expressed in percent (2.5 means 2.5%), Flat in currency units; both apply,
// each defaulting to zero. Which combination is active is a deployment
// choice.
type FeePolicy struct {
	Percent decimal.Decimal
	Flat    decimal.Decimal
}

// Split returns the fee deducted from a gross deposit and the net amount
// credited, both at minor-unit precision. The fee never exceeds the gross
// amount, so tiny deposits under a flat fee credit zero instead of going
// negative.
func (p FeePolicy) Split(gross decimal.Decimal) (fee, net decimal.Decimal) {
	fee = money.ApplyRate(gross, p.Percent.Div(decimal.NewFromInt(100))).Add(p.Flat)
	if fee.GreaterThan(gross) {
		fee = gross
	}
	return fee, gross.Sub(fee)
}

// Receipt is the terminal outcome of one webhook delivery.
type Receipt struct {
	UserID      string
	Transaction ledger.Transaction
	Duplicate   bool
	Ignored     bool
}

// Service reconciles verified deposit webhooks against the ledger. Each
// delivery walks received -> verified -> resolved -> credited -> recorded,
// or exits early with a typed rejection.
type Service struct {
	store  ledger.Store
	secret string
	fees   FeePolicy
	guard  *ReplayGuard
	logger *slog.Logger
}

// NewService constructs the deposit reconciler. guard may be nil when Redis
// is unavailable; the ledger's reference uniqueness still holds.
func NewService(store ledger.Store, secret string, fees FeePolicy, guard *ReplayGuard, logger *slog.Logger) *Service {
	return &Service{store: store, secret: secret, fees: fees, guard: guard, logger: logger}
}

// Process handles one delivery. body must be the unparsed request bytes.
func (s *Service) Process(ctx context.Context, body []byte, signature string) (Receipt, error) {
	if !VerifySignature(s.secret, body, signature) {
		return Receipt{}, ErrInvalidSignature
	}

	var event Event
	if err := json.Unmarshal(body, &event); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	switch event.Event {
	case EventTransactionSuccessful, EventReservedAccountCredit:
	default:
		s.logger.Info("ignoring webhook event", "event", event.Event, "reference", event.Reference)
		return Receipt{Ignored: true}, nil
	}

	if event.AccountNumber == "" || event.Reference == "" {
		return Receipt{}, fmt.Errorf("%w: missing account number or reference", ErrInvalidPayload)
	}
	gross := money.Round(event.Amount)
	if !money.IsPositive(gross) {
		return Receipt{}, fmt.Errorf("%w: amount must be positive", ErrInvalidPayload)
	}

	if s.guard.Seen(ctx, event.Reference) {
		s.logger.Info("webhook redelivery suppressed", "reference", event.Reference)
		return Receipt{Duplicate: true}, nil
	}

	userID, err := s.store.ResolveVirtualAccount(ctx, event.AccountNumber)
	if err != nil {
		return Receipt{}, err
	}

	fee, net := s.fees.Split(gross)

	tx, err := s.store.Credit(ctx, userID, ledger.CreditInput{
		Gross:     gross,
		Fee:       fee,
		Net:       net,
		Reference: event.Reference,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			s.guard.Mark(ctx, event.Reference)
			return Receipt{UserID: userID, Transaction: tx, Duplicate: true}, nil
		}
		// The store applies balance and record atomically, so an error here
		// means nothing was written. Log with full context anyway: if a
		// backend ever violates that contract the operator needs the trail.
		s.logger.Error("deposit credit failed",
			"user_id", userID, "reference", event.Reference,
			"gross", gross.String(), "net", net.String(), "error", err)
		return Receipt{}, err
	}

	s.guard.Mark(ctx, event.Reference)
	s.logger.Info("deposit credited",
		"user_id", userID, "reference", event.Reference,
		"gross", gross.String(), "fee", fee.String(), "net", net.String())

	return Receipt{UserID: userID, Transaction: tx}, nil
}
