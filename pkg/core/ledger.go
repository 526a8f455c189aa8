package core

import "github.com/shopspring/decimal"

// Ledger is a mapping from symbol to Wallet owned exclusively by one
// User. All wallets within a ledger have distinct symbols.
type Ledger map[string]*Wallet

// NewLedger returns an empty ledger.
func NewLedger() Ledger {
	return make(Ledger)
}

// Wallet returns the wallet for symbol, if the ledger has one.
func (l Ledger) Wallet(symbol string) (*Wallet, bool) {
	w, ok := l[symbol]
	return w, ok
}

// EnsureWallet returns the existing wallet for symbol, creating one with
// the given opening balance if absent.
func (l Ledger) EnsureWallet(symbol string, opening decimal.Decimal) *Wallet {
	if w, ok := l[symbol]; ok {
		return w
	}
	w := NewWallet(symbol, opening)
	l[symbol] = w
	return w
}
