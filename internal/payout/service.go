package payout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/gateway"
	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/money"
)

var (
	// ErrValidation indicates a malformed or below-minimum debit request.
	ErrValidation = errors.New("invalid request")

	// ErrInternalInconsistency indicates the provider confirmed a
	// disbursement but the ledger could no longer cover the debit. The
	// condition is logged for manual reconciliation and never retried
	// automatically.
	ErrInternalInconsistency = errors.New("ledger inconsistent with provider outcome")
)

// Disburser is the slice of the payment gateway the debit flows need.
type Disburser interface {
	Transfer(ctx context.Context, req gateway.TransferRequest) (gateway.Disbursement, error)
	BuyAirtime(ctx context.Context, req gateway.AirtimeRequest) (gateway.Disbursement, error)
	LookupAccount(ctx context.Context, bankCode, accountNumber string) (string, error)
	Banks(ctx context.Context) ([]gateway.Bank, error)
}

// Config carries the debit-flow tunables.
type Config struct {
	WithdrawalMinimum   decimal.Decimal
	WithdrawalFeeRate   decimal.Decimal
	AirtimeMinimum      decimal.Decimal
	AirtimeDiscountRate decimal.Decimal
}

// Service executes withdrawal and airtime debits. The shared shape: validate
// -> check funds -> call the provider -> on success, debit and record
// atomically. The provider call happens before any account lock is taken,
// so a slow provider never blocks other operations on the same account, and
// a provider rejection leaves the ledger untouched.
type Service struct {
	store    ledger.Store
	provider Disburser
	cfg      Config
	logger   *slog.Logger
}

// NewService constructs the debit executor.
func NewService(store ledger.Store, provider Disburser, cfg Config, logger *slog.Logger) *Service {
	return &Service{store: store, provider: provider, cfg: cfg, logger: logger}
}

// WithdrawInput is a validated withdrawal request.
type WithdrawInput struct {
	Amount        decimal.Decimal
	BankCode      string
	AccountNumber string
	Narration     string
}

// AirtimeInput is a validated airtime purchase request.
type AirtimeInput struct {
	Amount      decimal.Decimal
	PhoneNumber string
	Network     string
}

func normalizeStatus(s string) string {
	switch strings.ToUpper(s) {
	case "", "SUCCESS", "SUCCESSFUL", "COMPLETED":
		return ledger.StatusSuccess
	case "PENDING", "PROCESSING":
		return ledger.StatusPending
	case "FAILED":
		return ledger.StatusFailed
	default:
		return strings.ToUpper(s)
	}
}

func providerTxID(d gateway.Disbursement) string {
	if d.TransactionID != "" {
		return d.TransactionID
	}
	return d.Reference
}

// Withdraw sends the net amount (after fee) to the destination bank account
// and debits the full requested amount. The fee is absorbed into the
// platform's margin with the provider, not re-credited to the user.
func (s *Service) Withdraw(ctx context.Context, userID string, in WithdrawInput) (ledger.Withdrawal, error) {
	if in.BankCode == "" || in.AccountNumber == "" {
		return ledger.Withdrawal{}, fmt.Errorf("%w: bank code and account number are required", ErrValidation)
	}
	amount := money.Round(in.Amount)
	if amount.LessThan(s.cfg.WithdrawalMinimum) {
		return ledger.Withdrawal{}, fmt.Errorf("%w: minimum withdrawal is %s", ErrValidation, s.cfg.WithdrawalMinimum.StringFixed(money.Places))
	}

	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return ledger.Withdrawal{}, err
	}
	if acct.Balance.LessThan(amount) {
		return ledger.Withdrawal{}, ledger.ErrInsufficientFunds
	}

	fee := money.ApplyRate(amount, s.cfg.WithdrawalFeeRate)
	net := amount.Sub(fee)
	reference := uuid.NewString()

	disb, err := s.provider.Transfer(ctx, gateway.TransferRequest{
		Amount:        net,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		Narration:     in.Narration,
		Reference:     reference,
	})
	if err != nil {
		return ledger.Withdrawal{}, err
	}

	wd, err := s.store.DebitWithdrawal(ctx, userID, ledger.WithdrawalDebit{
		Amount:        amount,
		Fee:           fee,
		Net:           net,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		ProviderTxID:  providerTxID(disb),
		Status:        normalizeStatus(disb.Status),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return wd, nil
		}
		s.logger.Error("provider disbursed but ledger debit failed",
			"user_id", userID, "provider_tx_id", providerTxID(disb),
			"amount", amount.String(), "error", err)
		return ledger.Withdrawal{}, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}
	return wd, nil
}

// BuyAirtime purchases airtime at the configured discount: the discounted
// amount is both what the provider delivers and what the balance loses.
func (s *Service) BuyAirtime(ctx context.Context, userID string, in AirtimeInput) (ledger.Transaction, error) {
	if in.PhoneNumber == "" || in.Network == "" {
		return ledger.Transaction{}, fmt.Errorf("%w: phone number and network are required", ErrValidation)
	}
	amount := money.Round(in.Amount)
	if amount.LessThan(s.cfg.AirtimeMinimum) {
		return ledger.Transaction{}, fmt.Errorf("%w: minimum airtime purchase is %s", ErrValidation, s.cfg.AirtimeMinimum.StringFixed(money.Places))
	}

	charged := money.ApplyRate(amount, decimal.NewFromInt(1).Sub(s.cfg.AirtimeDiscountRate))

	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if acct.Balance.LessThan(charged) {
		return ledger.Transaction{}, ledger.ErrInsufficientFunds
	}

	reference := uuid.NewString()
	disb, err := s.provider.BuyAirtime(ctx, gateway.AirtimeRequest{
		Amount:      charged,
		PhoneNumber: in.PhoneNumber,
		Network:     in.Network,
		Reference:   reference,
	})
	if err != nil {
		return ledger.Transaction{}, err
	}

	tx, err := s.store.DebitAirtime(ctx, userID, ledger.AirtimeDebit{
		Gross:     amount,
		Fee:       amount.Sub(charged),
		Net:       charged,
		Reference: reference,
		Status:    normalizeStatus(disb.Status),
	})
	if err != nil {
		if errors.Is(err, ledger.ErrDuplicateReference) {
			return tx, nil
		}
		s.logger.Error("provider delivered airtime but ledger debit failed",
			"user_id", userID, "provider_tx_id", providerTxID(disb),
			"charged", charged.String(), "error", err)
		return ledger.Transaction{}, fmt.Errorf("%w: %v", ErrInternalInconsistency, err)
	}
	return tx, nil
}

// Banks lists the provider's destination banks.
func (s *Service) Banks(ctx context.Context) ([]gateway.Bank, error) {
	return s.provider.Banks(ctx)
}

// ResolveDestination confirms a destination account before the user commits
// to a withdrawal.
func (s *Service) ResolveDestination(ctx context.Context, bankCode, accountNumber string) (string, error) {
	if bankCode == "" || accountNumber == "" {
		return "", fmt.Errorf("%w: bank code and account number are required", ErrValidation)
	}
	return s.provider.LookupAccount(ctx, bankCode, accountNumber)
}
