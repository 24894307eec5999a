package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds occurs when an account lacks available balance to
	// cover a requested debit.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrDuplicateReference indicates the provider transaction reference has
	// already been recorded; the operation is treated as idempotent and the
	// original record is returned alongside this error.
	ErrDuplicateReference = errors.New("duplicate provider reference")

	// ErrAccountNotFound indicates no account exists for the identifier.
	ErrAccountNotFound = errors.New("account not found")

	// ErrAccountExists indicates an account was already provisioned.
	ErrAccountExists = errors.New("account already exists")

	// ErrAlreadyBound indicates the account already has a virtual account
	// binding; bindings are set at most once.
	ErrAlreadyBound = errors.New("virtual account already bound")
)

// Record kinds for the append-only transaction log.
const (
	KindDeposit = "deposit"
	KindAirtime = "airtime"
)

// Record statuses as reported by the provider.
const (
	StatusPending = "PENDING"
	StatusSuccess = "SUCCESS"
	StatusFailed  = "FAILED"
)

// VirtualAccount is the provider-issued bank account bound to one user,
// used to match inbound deposit webhooks to their owner.
type VirtualAccount struct {
	BankName      string
	AccountNumber string
	AccountName   string
	Reference     string
}

// Bound reports whether the binding has been set.
func (v VirtualAccount) Bound() bool {
	return v.AccountNumber != ""
}

// Account holds a user's balance and optional virtual account binding.
// The balance is mutated only through Credit and the Debit operations.
type Account struct {
	UserID         string
	Balance        decimal.Decimal
	VirtualAccount VirtualAccount
	CreatedAt      time.Time
}

// Transaction is an immutable audit record of a deposit or airtime purchase.
type Transaction struct {
	ID        string
	UserID    string
	Kind      string
	Gross     decimal.Decimal
	Fee       decimal.Decimal
	Net       decimal.Decimal
	Reference string
	Status    string
	CreatedAt time.Time
}

// Withdrawal is an immutable audit record of a bank transfer out.
type Withdrawal struct {
	ID            string
	UserID        string
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Net           decimal.Decimal
	BankCode      string
	AccountNumber string
	ProviderTxID  string
	Status        string
	CreatedAt     time.Time
}

// CreditInput describes a deposit to apply atomically: the balance increases
// by Net and exactly one transaction record is appended.
type CreditInput struct {
	Gross     decimal.Decimal
	Fee       decimal.Decimal
	Net       decimal.Decimal
	Reference string
}

// AirtimeDebit describes an airtime purchase: the balance decreases by Net
// (the discounted charge) and one transaction record is appended.
type AirtimeDebit struct {
	Gross     decimal.Decimal
	Fee       decimal.Decimal
	Net       decimal.Decimal
	Reference string
	Status    string
}

// WithdrawalDebit describes a withdrawal: the balance decreases by the full
// requested Amount and one withdrawal record is appended.
type WithdrawalDebit struct {
	Amount        decimal.Decimal
	Fee           decimal.Decimal
	Net           decimal.Decimal
	BankCode      string
	AccountNumber string
	ProviderTxID  string
	Status        string
}

// Store is the contract implemented by ledger backends. Balance mutations
// are atomic with their record append: concurrent operations on one account
// serialize, operations on different accounts proceed in parallel, and a
// rejected operation leaves no partial state behind.
type Store interface {
	CreateAccount(ctx context.Context, userID string, openingBalance decimal.Decimal) (Account, error)
	Account(ctx context.Context, userID string) (Account, error)

	// BindVirtualAccount sets the virtual account binding exactly once and
	// maintains the account-number index used by ResolveVirtualAccount.
	BindVirtualAccount(ctx context.Context, userID string, binding VirtualAccount) error

	// ResolveVirtualAccount maps a provider account number to the owning
	// user identifier via the secondary index, or ErrAccountNotFound.
	ResolveVirtualAccount(ctx context.Context, accountNumber string) (string, error)

	Credit(ctx context.Context, userID string, in CreditInput) (Transaction, error)
	DebitAirtime(ctx context.Context, userID string, in AirtimeDebit) (Transaction, error)
	DebitWithdrawal(ctx context.Context, userID string, in WithdrawalDebit) (Withdrawal, error)

	Transactions(ctx context.Context, userID string) ([]Transaction, error)
	Withdrawals(ctx context.Context, userID string) ([]Withdrawal, error)
}
