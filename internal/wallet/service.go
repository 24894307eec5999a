package wallet

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/ledger"
)

// AccountReserver provisions a virtual deposit account at the provider.
type AccountReserver interface {
	ReserveAccount(ctx context.Context, userID, accountName string) (ledger.VirtualAccount, error)
}

// Statement is the balance plus full history view exposed to collaborators.
type Statement struct {
	Account      ledger.Account
	Transactions []ledger.Transaction
	Withdrawals  []ledger.Withdrawal
}

// Service is the account facade over the ledger store: provisioning with
// the signup bonus, balance/history queries, and the one-time virtual
// account binding.
type Service struct {
	store       ledger.Store
	reserver    AccountReserver
	signupBonus decimal.Decimal
}

// NewService builds the wallet service.
func NewService(store ledger.Store, reserver AccountReserver, signupBonus decimal.Decimal) *Service {
	return &Service{store: store, reserver: reserver, signupBonus: signupBonus}
}

// Create provisions an account funded with the signup bonus. The excluded
// registration layer calls this once per new user.
func (s *Service) Create(ctx context.Context, userID string) (ledger.Account, error) {
	return s.store.CreateAccount(ctx, userID, s.signupBonus)
}

// Statement returns the balance and both append-only histories.
func (s *Service) Statement(ctx context.Context, userID string) (Statement, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	txs, err := s.store.Transactions(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	wds, err := s.store.Withdrawals(ctx, userID)
	if err != nil {
		return Statement{}, err
	}
	return Statement{Account: acct, Transactions: txs, Withdrawals: wds}, nil
}

// GenerateVirtualAccount reserves a deposit account at the provider and
// binds it. The binding is set once; a repeat call returns the existing one
// without touching the provider again.
func (s *Service) GenerateVirtualAccount(ctx context.Context, userID, accountName string) (ledger.VirtualAccount, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return ledger.VirtualAccount{}, err
	}
	if acct.VirtualAccount.Bound() {
		return acct.VirtualAccount, nil
	}

	binding, err := s.reserver.ReserveAccount(ctx, userID, accountName)
	if err != nil {
		return ledger.VirtualAccount{}, err
	}

	if err := s.store.BindVirtualAccount(ctx, userID, binding); err != nil {
		if errors.Is(err, ledger.ErrAlreadyBound) {
			// lost a race with another request for the same user
			acct, err := s.store.Account(ctx, userID)
			if err != nil {
				return ledger.VirtualAccount{}, err
			}
			return acct.VirtualAccount, nil
		}
		return ledger.VirtualAccount{}, err
	}
	return binding, nil
}
