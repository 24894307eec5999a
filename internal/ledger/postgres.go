package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/money"
)

// PostgresStore persists accounts and their append-only records in
// PostgreSQL. Per-account mutual exclusion comes from SELECT ... FOR UPDATE
// row locks, so two concurrent mutations on one account serialize while
// different accounts never contend. Record uniqueness on (kind, reference)
// is enforced by a unique constraint, making webhook redelivery a no-op even
// if two deliveries race past the application-level check.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func (s *PostgresStore) CreateAccount(ctx context.Context, userID string, openingBalance decimal.Decimal) (Account, error) {
	now := time.Now().UTC()
	_, err := s.db.Exec(ctx, `INSERT INTO accounts (user_id, balance, created_at)
        VALUES ($1, $2::numeric, $3)`, userID, openingBalance.StringFixed(money.Places), now)
	if err != nil {
		if isUniqueViolation(err) {
			return Account{}, ErrAccountExists
		}
		return Account{}, fmt.Errorf("create account: %w", err)
	}
	return Account{UserID: userID, Balance: openingBalance, CreatedAt: now}, nil
}

func (s *PostgresStore) Account(ctx context.Context, userID string) (Account, error) {
	const query = `
        SELECT user_id, balance::text,
               COALESCE(bank_name, ''), COALESCE(account_number, ''),
               COALESCE(account_name, ''), COALESCE(provider_ref, ''),
               created_at
        FROM accounts WHERE user_id = $1`
	return scanAccount(s.db.QueryRow(ctx, query, userID))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (Account, error) {
	var a Account
	var balance string
	err := row.Scan(&a.UserID, &balance,
		&a.VirtualAccount.BankName, &a.VirtualAccount.AccountNumber,
		&a.VirtualAccount.AccountName, &a.VirtualAccount.Reference,
		&a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	a.Balance, err = decimal.NewFromString(balance)
	if err != nil {
		return Account{}, fmt.Errorf("decode balance: %w", err)
	}
	a.CreatedAt = a.CreatedAt.UTC()
	return a, nil
}

func (s *PostgresStore) BindVirtualAccount(ctx context.Context, userID string, binding VirtualAccount) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE accounts
        SET bank_name = $2, account_number = $3, account_name = $4, provider_ref = $5
        WHERE user_id = $1 AND account_number IS NULL`,
		userID, binding.BankName, binding.AccountNumber, binding.AccountName, binding.Reference)
	if err != nil {
		return fmt.Errorf("bind virtual account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Account(ctx, userID); err != nil {
			return err
		}
		return ErrAlreadyBound
	}
	return nil
}

// ResolveVirtualAccount uses the unique index on accounts.account_number,
// so webhook resolution is a point lookup rather than a scan.
func (s *PostgresStore) ResolveVirtualAccount(ctx context.Context, accountNumber string) (string, error) {
	var userID string
	err := s.db.QueryRow(ctx, `SELECT user_id FROM accounts WHERE account_number = $1`, accountNumber).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrAccountNotFound
		}
		return "", err
	}
	return userID, nil
}

// lockBalance reads the current balance under a row lock held for the rest
// of the transaction.
func lockBalance(ctx context.Context, tx pgx.Tx, userID string) (decimal.Decimal, error) {
	var balance string
	err := tx.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE user_id = $1 FOR UPDATE`, userID).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, ErrAccountNotFound
		}
		return decimal.Zero, err
	}
	return decimal.NewFromString(balance)
}

func existingTransaction(ctx context.Context, tx pgx.Tx, userID, kind, reference string) (Transaction, bool, error) {
	const query = `
        SELECT id, user_id, kind, gross::text, fee::text, net::text, reference, status, created_at
        FROM transactions WHERE user_id = $1 AND kind = $2 AND reference = $3`
	rec, err := scanTransaction(tx.QueryRow(ctx, query, userID, kind, reference))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, false, nil
		}
		return Transaction{}, false, err
	}
	return rec, true, nil
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var t Transaction
	var gross, fee, net string
	if err := row.Scan(&t.ID, &t.UserID, &t.Kind, &gross, &fee, &net, &t.Reference, &t.Status, &t.CreatedAt); err != nil {
		return Transaction{}, err
	}
	var err error
	if t.Gross, err = decimal.NewFromString(gross); err != nil {
		return Transaction{}, err
	}
	if t.Fee, err = decimal.NewFromString(fee); err != nil {
		return Transaction{}, err
	}
	if t.Net, err = decimal.NewFromString(net); err != nil {
		return Transaction{}, err
	}
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func insertTransaction(ctx context.Context, tx pgx.Tx, t Transaction) error {
	_, err := tx.Exec(ctx, `
        INSERT INTO transactions (id, user_id, kind, gross, fee, net, reference, status, created_at)
        VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6::numeric, $7, $8, $9)`,
		t.ID, t.UserID, t.Kind,
		t.Gross.StringFixed(money.Places), t.Fee.StringFixed(money.Places), t.Net.StringFixed(money.Places),
		t.Reference, t.Status, t.CreatedAt)
	return err
}

func setBalance(ctx context.Context, tx pgx.Tx, userID string, balance decimal.Decimal) error {
	_, err := tx.Exec(ctx, `UPDATE accounts SET balance = $2::numeric WHERE user_id = $1`,
		userID, balance.StringFixed(money.Places))
	return err
}

func (s *PostgresStore) Credit(ctx context.Context, userID string, in CreditInput) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return Transaction{}, err
	}

	if rec, found, err := existingTransaction(ctx, tx, userID, KindDeposit, in.Reference); err != nil {
		return Transaction{}, err
	} else if found {
		return rec, ErrDuplicateReference
	}

	rec := Transaction{
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
	if err := insertTransaction(ctx, tx, rec); err != nil {
		if isUniqueViolation(err) {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, err
	}
	if err := setBalance(ctx, tx, userID, balance.Add(in.Net)); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func (s *PostgresStore) DebitAirtime(ctx context.Context, userID string, in AirtimeDebit) (Transaction, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Transaction{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return Transaction{}, err
	}

	if rec, found, err := existingTransaction(ctx, tx, userID, KindAirtime, in.Reference); err != nil {
		return Transaction{}, err
	} else if found {
		return rec, ErrDuplicateReference
	}

	if balance.LessThan(in.Net) {
		return Transaction{}, ErrInsufficientFunds
	}

	rec := Transaction{
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
	if err := insertTransaction(ctx, tx, rec); err != nil {
		if isUniqueViolation(err) {
			return Transaction{}, ErrDuplicateReference
		}
		return Transaction{}, err
	}
	if err := setBalance(ctx, tx, userID, balance.Sub(in.Net)); err != nil {
		return Transaction{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Transaction{}, err
	}
	return rec, nil
}

func (s *PostgresStore) DebitWithdrawal(ctx context.Context, userID string, in WithdrawalDebit) (Withdrawal, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Withdrawal{}, err
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balance, err := lockBalance(ctx, tx, userID)
	if err != nil {
		return Withdrawal{}, err
	}

	const existing = `
        SELECT id, user_id, amount::text, fee::text, net::text, bank_code, account_number, provider_tx_id, status, created_at
        FROM withdrawals WHERE user_id = $1 AND provider_tx_id = $2`
	rec, err := scanWithdrawal(tx.QueryRow(ctx, existing, userID, in.ProviderTxID))
	if err == nil {
		return rec, ErrDuplicateReference
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Withdrawal{}, err
	}

	if balance.LessThan(in.Amount) {
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
	_, err = tx.Exec(ctx, `
        INSERT INTO withdrawals (id, user_id, amount, fee, net, bank_code, account_number, provider_tx_id, status, created_at)
        VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9, $10)`,
		wd.ID, wd.UserID,
		wd.Amount.StringFixed(money.Places), wd.Fee.StringFixed(money.Places), wd.Net.StringFixed(money.Places),
		wd.BankCode, wd.AccountNumber, wd.ProviderTxID, wd.Status, wd.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return Withdrawal{}, ErrDuplicateReference
		}
		return Withdrawal{}, err
	}
	if err := setBalance(ctx, tx, userID, balance.Sub(in.Amount)); err != nil {
		return Withdrawal{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return Withdrawal{}, err
	}
	return wd, nil
}

func scanWithdrawal(row rowScanner) (Withdrawal, error) {
	var w Withdrawal
	var amount, fee, net string
	err := row.Scan(&w.ID, &w.UserID, &amount, &fee, &net,
		&w.BankCode, &w.AccountNumber, &w.ProviderTxID, &w.Status, &w.CreatedAt)
	if err != nil {
		return Withdrawal{}, err
	}
	if w.Amount, err = decimal.NewFromString(amount); err != nil {
		return Withdrawal{}, err
	}
	if w.Fee, err = decimal.NewFromString(fee); err != nil {
		return Withdrawal{}, err
	}
	if w.Net, err = decimal.NewFromString(net); err != nil {
		return Withdrawal{}, err
	}
	w.CreatedAt = w.CreatedAt.UTC()
	return w, nil
}

func (s *PostgresStore) Transactions(ctx context.Context, userID string) ([]Transaction, error) {
	const query = `
        SELECT id, user_id, kind, gross::text, fee::text, net::text, reference, status, created_at
        FROM transactions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Withdrawals(ctx context.Context, userID string) ([]Withdrawal, error) {
	const query = `
        SELECT id, user_id, amount::text, fee::text, net::text, bank_code, account_number, provider_tx_id, status, created_at
        FROM withdrawals WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Withdrawal
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
