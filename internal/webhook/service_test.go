package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/padipay/padipay/internal/ledger"
	"github.com/padipay/padipay/internal/logging"
	"github.com/padipay/padipay/internal/money"
)

const testSecret = "whsec_test"

func newTestService(t *testing.T, fees FeePolicy) (*Service, ledger.Store) {
	t.Helper()
	store := ledger.NewInMemory()
	ctx := context.Background()
	if _, err := store.CreateAccount(ctx, "u1", money.Zero); err != nil {
		t.Fatalf("create account: %v", err)
	}
	if err := store.BindVirtualAccount(ctx, "u1", ledger.VirtualAccount{
		BankName:      "Wema Bank",
		AccountNumber: "7012345678",
		AccountName:   "Ada Obi",
	}); err != nil {
		t.Fatalf("bind: %v", err)
	}
	return NewService(store, testSecret, fees, nil, logging.Discard()), store
}

func deliver(t *testing.T, svc *Service, event Event) (Receipt, error) {
	t.Helper()
	body, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return svc.Process(context.Background(), body, Sign(testSecret, body))
}

func TestProcessCreditsNetAmount(t *testing.T) {
	svc, store := newTestService(t, FeePolicy{Percent: decimal.NewFromFloat(2.5)})

	receipt, err := deliver(t, svc, Event{
		Event:         EventTransactionSuccessful,
		AccountNumber: "7012345678",
		Amount:        money.MustParse("100.00"),
		Reference:     "ref-1",
		Timestamp:     time.Now().Unix(),
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if receipt.UserID != "u1" {
		t.Fatalf("resolved wrong user: %s", receipt.UserID)
	}
	if !receipt.Transaction.Net.Equal(money.MustParse("97.50")) {
		t.Fatalf("expected net 97.50, got %s", receipt.Transaction.Net)
	}
	if !receipt.Transaction.Fee.Equal(money.MustParse("2.50")) {
		t.Fatalf("expected fee 2.50, got %s", receipt.Transaction.Fee)
	}

	acct, _ := store.Account(context.Background(), "u1")
	if !acct.Balance.Equal(money.MustParse("97.50")) {
		t.Fatalf("expected balance 97.50, got %s", acct.Balance)
	}
}

func TestProcessRejectsBadSignature(t *testing.T) {
	svc, store := newTestService(t, FeePolicy{})

	body, _ := json.Marshal(Event{
		Event:         EventTransactionSuccessful,
		AccountNumber: "7012345678",
		Amount:        money.MustParse("100.00"),
		Reference:     "ref-1",
	})
	if _, err := svc.Process(context.Background(), body, Sign("wrong-secret", body)); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected invalid signature, got %v", err)
	}

	acct, _ := store.Account(context.Background(), "u1")
	if !acct.Balance.IsZero() {
		t.Fatalf("rejected delivery mutated balance: %s", acct.Balance)
	}
}

func TestProcessUnresolvedAccount(t *testing.T) {
	svc, _ := newTestService(t, FeePolicy{})

	_, err := deliver(t, svc, Event{
		Event:         EventTransactionSuccessful,
		AccountNumber: "0000000000",
		Amount:        money.MustParse("100.00"),
		Reference:     "ref-1",
	})
	if !errors.Is(err, ledger.ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}

func TestProcessIgnoresUnsupportedEvent(t *testing.T) {
	svc, store := newTestService(t, FeePolicy{})

	receipt, err := deliver(t, svc, Event{
		Event:         "transfer.reversed",
		AccountNumber: "7012345678",
		Amount:        money.MustParse("100.00"),
		Reference:     "ref-1",
	})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if !receipt.Ignored {
		t.Fatal("expected event to be ignored")
	}

	acct, _ := store.Account(context.Background(), "u1")
	if !acct.Balance.IsZero() {
		t.Fatalf("ignored event mutated balance: %s", acct.Balance)
	}
}

func TestProcessRedeliveryDoesNotDoubleCredit(t *testing.T) {
	svc, store := newTestService(t, FeePolicy{})

	event := Event{
		Event:         EventReservedAccountCredit,
		AccountNumber: "7012345678",
		Amount:        money.MustParse("250.00"),
		Reference:     "ref-dup",
	}
	if _, err := deliver(t, svc, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}

	receipt, err := deliver(t, svc, event)
	if err != nil {
		t.Fatalf("redelivery must acknowledge, got %v", err)
	}
	if !receipt.Duplicate {
		t.Fatal("expected duplicate receipt")
	}

	acct, _ := store.Account(context.Background(), "u1")
	if !acct.Balance.Equal(money.MustParse("250.00")) {
		t.Fatalf("redelivery changed balance: %s", acct.Balance)
	}
}

func TestProcessReplayGuardShortCircuits(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	store := ledger.NewInMemory()
	ctx := context.Background()
	store.CreateAccount(ctx, "u1", money.Zero)
	store.BindVirtualAccount(ctx, "u1", ledger.VirtualAccount{AccountNumber: "7012345678"})

	guard := NewReplayGuard(cache, time.Hour, logging.Discard())
	svc := NewService(store, testSecret, FeePolicy{}, guard, logging.Discard())

	event := Event{
		Event:         EventTransactionSuccessful,
		AccountNumber: "7012345678",
		Amount:        money.MustParse("10.00"),
		Reference:     "ref-guard",
	}
	if _, err := deliver(t, svc, event); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	if !guard.Seen(ctx, "ref-guard") {
		t.Fatal("expected reference marked in guard")
	}

	receipt, err := deliver(t, svc, event)
	if err != nil || !receipt.Duplicate {
		t.Fatalf("expected guarded duplicate, got %+v err %v", receipt, err)
	}
}

func TestFeePolicyFlatNeverExceedsGross(t *testing.T) {
	p := FeePolicy{Flat: money.MustParse("50.00")}
	fee, net := p.Split(money.MustParse("20.00"))
	if !fee.Equal(money.MustParse("20.00")) || !net.IsZero() {
		t.Fatalf("expected fee capped at gross, got fee %s net %s", fee, net)
	}
}
