package ledger

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/money"
)

func newTestAccount(t *testing.T, s Store, userID, opening string) {
	t.Helper()
	if _, err := s.CreateAccount(context.Background(), userID, money.MustParse(opening)); err != nil {
		t.Fatalf("create account: %v", err)
	}
}

func TestCreditAppendsRecordAndRaisesBalance(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "0.00")

	tx, err := s.Credit(ctx, "u1", CreditInput{
		Gross:     money.MustParse("100.00"),
		Fee:       money.MustParse("2.50"),
		Net:       money.MustParse("97.50"),
		Reference: "ref-1",
	})
	if err != nil {
		t.Fatalf("credit: %v", err)
	}
	if tx.Kind != KindDeposit || tx.Status != StatusSuccess {
		t.Fatalf("unexpected record: %+v", tx)
	}

	acct, err := s.Account(ctx, "u1")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !acct.Balance.Equal(money.MustParse("97.50")) {
		t.Fatalf("expected balance 97.50, got %s", acct.Balance)
	}

	txs, err := s.Transactions(ctx, "u1")
	if err != nil {
		t.Fatalf("transactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(txs))
	}
}

func TestCreditDuplicateReferenceIsNoOp(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "0.00")

	in := CreditInput{
		Gross:     money.MustParse("50.00"),
		Fee:       money.Zero,
		Net:       money.MustParse("50.00"),
		Reference: "dup",
	}
	first, err := s.Credit(ctx, "u1", in)
	if err != nil {
		t.Fatalf("first credit: %v", err)
	}

	second, err := s.Credit(ctx, "u1", in)
	if !errors.Is(err, ErrDuplicateReference) {
		t.Fatalf("expected duplicate reference, got %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected original record back, got %+v", second)
	}

	acct, _ := s.Account(ctx, "u1")
	if !acct.Balance.Equal(money.MustParse("50.00")) {
		t.Fatalf("redelivery changed the balance: %s", acct.Balance)
	}
}

func TestConcurrentCreditsBothLandExactlyOnce(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "0.00")

	amounts := map[string]string{"ref-a": "1000.00", "ref-b": "500.00"}

	var wg sync.WaitGroup
	for ref, amt := range amounts {
		wg.Add(1)
		go func(ref, amt string) {
			defer wg.Done()
			_, err := s.Credit(ctx, "u1", CreditInput{
				Gross:     money.MustParse(amt),
				Fee:       money.Zero,
				Net:       money.MustParse(amt),
				Reference: ref,
			})
			if err != nil {
				t.Errorf("credit %s: %v", ref, err)
			}
		}(ref, amt)
	}
	wg.Wait()

	acct, err := s.Account(ctx, "u1")
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if !acct.Balance.Equal(money.MustParse("1500.00")) {
		t.Fatalf("expected 1500.00 after concurrent credits, got %s", acct.Balance)
	}
}

func TestDebitInsufficientFundsLeavesStateUnchanged(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "100.00")

	_, err := s.DebitWithdrawal(ctx, "u1", WithdrawalDebit{
		Amount:       money.MustParse("150.00"),
		Fee:          money.MustParse("2.25"),
		Net:          money.MustParse("147.75"),
		BankCode:     "058",
		ProviderTxID: "ptx-1",
		Status:       StatusSuccess,
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	acct, _ := s.Account(ctx, "u1")
	if !acct.Balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("balance changed on rejected debit: %s", acct.Balance)
	}
	wds, _ := s.Withdrawals(ctx, "u1")
	if len(wds) != 0 {
		t.Fatalf("rejected debit appended a record: %+v", wds)
	}
}

func TestDebitWithdrawalChargesFullAmount(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "1000.00")

	wd, err := s.DebitWithdrawal(ctx, "u1", WithdrawalDebit{
		Amount:        money.MustParse("200.00"),
		Fee:           money.MustParse("3.00"),
		Net:           money.MustParse("197.00"),
		BankCode:      "058",
		AccountNumber: "0123456789",
		ProviderTxID:  "ptx-2",
		Status:        StatusSuccess,
	})
	if err != nil {
		t.Fatalf("debit withdrawal: %v", err)
	}
	if wd.Status != StatusSuccess {
		t.Fatalf("unexpected status %s", wd.Status)
	}

	acct, _ := s.Account(ctx, "u1")
	if !acct.Balance.Equal(money.MustParse("800.00")) {
		t.Fatalf("expected 800.00, got %s", acct.Balance)
	}
}

func TestBalanceEquation(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	bonus := money.MustParse("50.00")
	newTestAccount(t, s, "u1", "50.00")

	credits := []string{"100.00", "250.00", "0.01"}
	for i, amt := range credits {
		net := money.MustParse(amt)
		if _, err := s.Credit(ctx, "u1", CreditInput{Gross: net, Net: net, Reference: "c" + string(rune('a'+i))}); err != nil {
			t.Fatalf("credit: %v", err)
		}
	}

	if _, err := s.DebitWithdrawal(ctx, "u1", WithdrawalDebit{
		Amount:       money.MustParse("120.00"),
		Fee:          money.MustParse("1.80"),
		Net:          money.MustParse("118.20"),
		ProviderTxID: "w1",
		Status:       StatusSuccess,
	}); err != nil {
		t.Fatalf("withdrawal: %v", err)
	}
	if _, err := s.DebitAirtime(ctx, "u1", AirtimeDebit{
		Gross:     money.MustParse("100.00"),
		Fee:       money.MustParse("2.00"),
		Net:       money.MustParse("98.00"),
		Reference: "a1",
		Status:    StatusSuccess,
	}); err != nil {
		t.Fatalf("airtime: %v", err)
	}

	expected := bonus.
		Add(money.MustParse("350.01")).
		Sub(money.MustParse("120.00")).
		Sub(money.MustParse("98.00"))

	acct, _ := s.Account(ctx, "u1")
	if !acct.Balance.Equal(expected) {
		t.Fatalf("balance equation violated: want %s got %s", expected, acct.Balance)
	}
}

func TestVirtualAccountBindAndResolve(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "0.00")

	binding := VirtualAccount{
		BankName:      "Wema Bank",
		AccountNumber: "7012345678",
		AccountName:   "Ada Obi",
		Reference:     "rsv-1",
	}
	if err := s.BindVirtualAccount(ctx, "u1", binding); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := s.BindVirtualAccount(ctx, "u1", binding); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("expected already bound, got %v", err)
	}

	userID, err := s.ResolveVirtualAccount(ctx, "7012345678")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %s", userID)
	}

	if _, err := s.ResolveVirtualAccount(ctx, "0000000000"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestManySmallDepositsNoDrift(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	newTestAccount(t, s, "u1", "0.00")

	unit := money.MustParse("0.01")
	for i := 0; i < 10_000; i++ {
		ref := decimal.NewFromInt(int64(i)).String()
		if _, err := s.Credit(ctx, "u1", CreditInput{Gross: unit, Net: unit, Reference: "micro-" + ref}); err != nil {
			t.Fatalf("credit %d: %v", i, err)
		}
	}

	acct, _ := s.Account(ctx, "u1")
	if !acct.Balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("expected 100.00, got %s", acct.Balance)
	}
}
