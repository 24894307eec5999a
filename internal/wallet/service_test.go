package wallet

import (
	"context"
	"errors"
	"testing"

	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/money"
)

type stubReserver struct {
	calls int
}

func (r *stubReserver) ReserveAccount(_ context.Context, userID, accountName string) (ledger.VirtualAccount, error) {
	r.calls++
	return ledger.VirtualAccount{
		BankName:      "Wema Bank",
		AccountNumber: "70" + userID,
		AccountName:   accountName,
		Reference:     "rsv-1",
	}, nil
}

func TestCreateAppliesSignupBonus(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, &stubReserver{}, money.MustParse("50.00"))

	acct, err := svc.Create(context.Background(), "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !acct.Balance.Equal(money.MustParse("50.00")) {
		t.Fatalf("expected signup bonus 50.00, got %s", acct.Balance)
	}

	if _, err := svc.Create(context.Background(), "u1"); !errors.Is(err, ledger.ErrAccountExists) {
		t.Fatalf("expected account exists, got %v", err)
	}
}

func TestStatementReturnsHistories(t *testing.T) {
	store := ledger.NewInMemory()
	svc := NewService(store, &stubReserver{}, money.Zero)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.Credit(ctx, "u1", ledger.CreditInput{
		Gross:     money.MustParse("100.00"),
		Net:       money.MustParse("100.00"),
		Reference: "ref-1",
	}); err != nil {
		t.Fatalf("credit: %v", err)
	}

	st, err := svc.Statement(ctx, "u1")
	if err != nil {
		t.Fatalf("statement: %v", err)
	}
	if len(st.Transactions) != 1 || len(st.Withdrawals) != 0 {
		t.Fatalf("unexpected histories: %+v", st)
	}
	if !st.Account.Balance.Equal(money.MustParse("100.00")) {
		t.Fatalf("expected balance 100.00, got %s", st.Account.Balance)
	}
}

func TestGenerateVirtualAccountIsSetOnce(t *testing.T) {
	store := ledger.NewInMemory()
	reserver := &stubReserver{}
	svc := NewService(store, reserver, money.Zero)
	ctx := context.Background()

	if _, err := svc.Create(ctx, "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}

	first, err := svc.GenerateVirtualAccount(ctx, "u1", "Ada Obi")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	second, err := svc.GenerateVirtualAccount(ctx, "u1", "Different Name")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}

	if reserver.calls != 1 {
		t.Fatalf("provider should be called once, got %d", reserver.calls)
	}
	if second != first {
		t.Fatalf("binding changed on second call: %+v vs %+v", second, first)
	}

	uid, err := store.ResolveVirtualAccount(ctx, first.AccountNumber)
	if err != nil || uid != "u1" {
		t.Fatalf("index not maintained: %s %v", uid, err)
	}
}
