package core

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

func TestWallet_SubtractInsufficientFunds(t *testing.T) {
	w := NewWallet("USD", decimal.NewFromInt(10))
	err := w.Subtract(decimal.NewFromInt(20))
	if apperr.KindOf(err) != apperr.KindInsufficientFunds {
		t.Fatalf("Subtract(20) from balance 10 kind = %v, want KindInsufficientFunds", apperr.KindOf(err))
	}
	if !w.Balance().Equal(decimal.NewFromInt(10)) {
		t.Fatalf("balance after a failed Subtract = %s, want unchanged 10", w.Balance())
	}
}

func TestWallet_AddSubtractRoundTrip(t *testing.T) {
	w := NewWallet("USD", decimal.NewFromInt(100))
	w.Add(decimal.NewFromInt(50))
	if err := w.Subtract(decimal.NewFromInt(30)); err != nil {
		t.Fatalf("Subtract: %v", err)
	}
	if !w.Balance().Equal(decimal.NewFromInt(120)) {
		t.Fatalf("balance = %s, want 120", w.Balance())
	}
}

func TestWallet_HasAtLeast(t *testing.T) {
	w := NewWallet("USD", decimal.NewFromInt(10))
	if !w.HasAtLeast(decimal.NewFromInt(10)) {
		t.Error("HasAtLeast(10) = false for balance exactly 10")
	}
	if w.HasAtLeast(decimal.NewFromInt(11)) {
		t.Error("HasAtLeast(11) = true for balance 10")
	}
}

func TestLedger_EnsureWalletIsIdempotent(t *testing.T) {
	l := NewLedger()
	first := l.EnsureWallet("BTC", decimal.NewFromInt(1))
	second := l.EnsureWallet("BTC", decimal.NewFromInt(99))
	if first != second {
		t.Fatal("EnsureWallet created a second wallet for an already-present symbol")
	}
	if !first.Balance().Equal(decimal.NewFromInt(1)) {
		t.Fatalf("balance = %s, want the opening balance from the first call (1)", first.Balance())
	}
}
