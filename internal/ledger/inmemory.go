package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// memoryAccount serializes every balance mutation on a single account. The
// mutex is held across the read-modify-write-append sequence so concurrent
// postings against the same account can never lose an update, while other
// accounts stay fully parallel.
type memoryAccount struct {
	mu          sync.Mutex
	account     Account
	txs         []Transaction
	withdrawals []Withdrawal
	refs        map[string]int // reference key -> index into txs/withdrawals
}

type inMemoryStore struct {
	mu       sync.RWMutex
	accounts map[string]*memoryAccount
	index    map[string]string // virtual account number -> user id
}

// NewInMemory creates a concurrency-safe in-memory store used for unit tests
// and local development without PostgreSQL.
func NewInMemory() Store {
	return &inMemoryStore{
		accounts: make(map[string]*memoryAccount),
		index:    make(map[string]string),
	}
}

func (s *inMemoryStore) CreateAccount(_ context.Context, userID string, openingBalance decimal.Decimal) (Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[userID]; exists {
		return Account{}, ErrAccountExists
	}
	acct := Account{
		UserID:    userID,
		Balance:   openingBalance,
		CreatedAt: time.Now().UTC(),
	}
	s.accounts[userID] = &memoryAccount{
		account: acct,
		refs:    make(map[string]int),
	}
	return acct, nil
}

func (s *inMemoryStore) lookup(userID string) (*memoryAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.accounts[userID]
	if !ok {
		return nil, ErrAccountNotFound
	}
	return entry, nil
}

func (s *inMemoryStore) Account(_ context.Context, userID string) (Account, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return Account{}, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.account, nil
}

func (s *inMemoryStore) BindVirtualAccount(_ context.Context, userID string, binding VirtualAccount) error {
	entry, err := s.lookup(userID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	if entry.account.VirtualAccount.Bound() {
		return ErrAlreadyBound
	}
	entry.account.VirtualAccount = binding

	s.mu.Lock()
	s.index[binding.AccountNumber] = userID
	s.mu.Unlock()
	return nil
}

func (s *inMemoryStore) ResolveVirtualAccount(_ context.Context, accountNumber string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.index[accountNumber]
	if !ok {
		return "", ErrAccountNotFound
	}
	return userID, nil
}

func (s *inMemoryStore) Credit(_ context.Context, userID string, in CreditInput) (Transaction, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return Transaction{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	key := KindDeposit + ":" + in.Reference
	if idx, seen := entry.refs[key]; seen {
		return entry.txs[idx], ErrDuplicateReference
	}

	tx := Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      KindDeposit,
		Gross:     in.Gross,
		Fee:       in.Fee,
		Net:       in.Net,
		Reference: in.Reference,
		Status:    StatusSuccess,
		CreatedAt: time.Now().UTC(),
	}

	entry.account.Balance = entry.account.Balance.Add(in.Net)
	entry.txs = append(entry.txs, tx)
	entry.refs[key] = len(entry.txs) - 1
	return tx, nil
}

func (s *inMemoryStore) DebitAirtime(_ context.Context, userID string, in AirtimeDebit) (Transaction, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return Transaction{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	key := KindAirtime + ":" + in.Reference
	if idx, seen := entry.refs[key]; seen {
		return entry.txs[idx], ErrDuplicateReference
	}

	if entry.account.Balance.LessThan(in.Net) {
		return Transaction{}, ErrInsufficientFunds
	}

	tx := Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      KindAirtime,
		Gross:     in.Gross,
		Fee:       in.Fee,
		Net:       in.Net,
		Reference: in.Reference,
		Status:    in.Status,
		CreatedAt: time.Now().UTC(),
	}

	entry.account.Balance = entry.account.Balance.Sub(in.Net)
	entry.txs = append(entry.txs, tx)
	entry.refs[key] = len(entry.txs) - 1
	return tx, nil
}

func (s *inMemoryStore) DebitWithdrawal(_ context.Context, userID string, in WithdrawalDebit) (Withdrawal, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return Withdrawal{}, err
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	key := "withdrawal:" + in.ProviderTxID
	if idx, seen := entry.refs[key]; seen {
		return entry.withdrawals[idx], ErrDuplicateReference
	}

	if entry.account.Balance.LessThan(in.Amount) {
		return Withdrawal{}, ErrInsufficientFunds
	}

	wd := Withdrawal{
		ID:            uuid.NewString(),
		UserID:        userID,
		Amount:        in.Amount,
		Fee:           in.Fee,
		Net:           in.Net,
		BankCode:      in.BankCode,
		AccountNumber: in.AccountNumber,
		ProviderTxID:  in.ProviderTxID,
		Status:        in.Status,
		CreatedAt:     time.Now().UTC(),
	}

	entry.account.Balance = entry.account.Balance.Sub(in.Amount)
	entry.withdrawals = append(entry.withdrawals, wd)
	entry.refs[key] = len(entry.withdrawals) - 1
	return wd, nil
}

func (s *inMemoryStore) Transactions(_ context.Context, userID string) ([]Transaction, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	// Newest first, matching the Postgres query ordering.
	out := make([]Transaction, len(entry.txs))
	for i, tx := range entry.txs {
		out[len(out)-1-i] = tx
	}
	return out, nil
}

func (s *inMemoryStore) Withdrawals(_ context.Context, userID string) ([]Withdrawal, error) {
	entry, err := s.lookup(userID)
	if err != nil {
		return nil, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := make([]Withdrawal, len(entry.withdrawals))
	for i, wd := range entry.withdrawals {
		out[len(out)-1-i] = wd
	}
	return out, nil
}
