package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that sets an account balance directly when
// using the in-memory store.
func SeedBalance(s Store, userID string, balance decimal.Decimal) {
	if mem, ok := s.(*inMemoryStore); ok {
		if entry, err := mem.lookup(userID); err == nil {
			entry.mu.Lock()
			defer entry.mu.Unlock()
			entry.account.Balance = balance
		}
	}
}
