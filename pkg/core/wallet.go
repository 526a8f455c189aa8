package core

import (
	"sync"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

// Wallet is a single (symbol, balance) cell. add and subtract are
// serialised per-wallet via a mutex so they linearise with respect to
// concurrent callers; no ordering is promised across different wallets.
type Wallet struct {
	mu      sync.Mutex
	symbol  string
	balance decimal.Decimal
}

// NewWallet creates a wallet for symbol with the given opening balance.
func NewWallet(symbol string, opening decimal.Decimal) *Wallet {
	return &Wallet{symbol: symbol, balance: opening}
}

func (w *Wallet) Symbol() string { return w.symbol }

// Balance returns the current balance. Never torn: the whole decimal is
// copied out under the wallet's lock.
func (w *Wallet) Balance() decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}

// Add atomically increases the balance by amount.
func (w *Wallet) Add(amount decimal.Decimal) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance = w.balance.Add(amount)
}

// Subtract atomically decreases the balance by amount, refusing to let it
// drop below zero. Leaves the balance unchanged if it fails.
func (w *Wallet) Subtract(amount decimal.Decimal) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balance.LessThan(amount) {
		return apperr.New(apperr.KindInsufficientFunds, "insufficient funds: have "+w.balance.String()+", need "+amount.String())
	}
	w.balance = w.balance.Sub(amount)
	return nil
}

// HasAtLeast is an advisory, non-reserving check: a concurrent Subtract on
// this same wallet can still invalidate it before the caller acts on the
// answer.
func (w *Wallet) HasAtLeast(amount decimal.Decimal) bool {
	return w.Balance().GreaterThanOrEqual(amount)
}
