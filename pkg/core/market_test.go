package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/moss-street/tradeserver/pkg/apperr"
)

func newOrderForFundedUser(id int64, btc, usd string) *Order {
	u := NewUser(id, "", "", "", "")
	u.Ledger.EnsureWallet("BTC", decimal.RequireFromString(btc))
	u.Ledger.EnsureWallet("USD", decimal.RequireFromString(usd))
	return &Order{User: u}
}

func limitOrderFor(base *Order, side Side, price, qty string) *Order {
	p := decimal.RequireFromString(price)
	base.Side = side
	base.Kind = Limit
	base.Price = &p
	base.SourceQty = decimal.RequireFromString(qty)
	base.RemainingQty = base.SourceQty
	base.Status = StatusNew
	base.Done = make(chan struct{})
	return base
}

func TestMarket_LimitCrossFillsBothFully(t *testing.T) {
	var fills []Fill
	m := NewMarket("BTC", "USD", func(f Fill) { fills = append(fills, f) }, nil)

	seller := limitOrderFor(newOrderForFundedUser(1, "10", "0"), Sell, "100", "5")
	m.processOrder(seller)
	if seller.Status != StatusResting {
		t.Fatalf("seller status = %v, want Resting", seller.Status)
	}
	if sellerBTC, _ := seller.User.Ledger.Wallet("BTC"); !sellerBTC.Balance().Equal(decimal.RequireFromString("5")) {
		t.Fatalf("seller BTC balance after resting = %s, want 5 (5 escrowed)", sellerBTC.Balance())
	}

	buyer := limitOrderFor(newOrderForFundedUser(2, "0", "1000"), Buy, "100", "5")
	m.processOrder(buyer)

	if buyer.Status != StatusFilled {
		t.Fatalf("buyer status = %v, want Filled", buyer.Status)
	}
	if seller.Status != StatusFilled {
		t.Fatalf("seller status after being fully matched = %v, want Filled", seller.Status)
	}

	buyerBTC, _ := buyer.User.Ledger.Wallet("BTC")
	buyerUSD, _ := buyer.User.Ledger.Wallet("USD")
	sellerUSD, _ := seller.User.Ledger.Wallet("USD")

	if !buyerBTC.Balance().Equal(decimal.RequireFromString("5")) {
		t.Errorf("buyer BTC = %s, want 5", buyerBTC.Balance())
	}
	if !buyerUSD.Balance().Equal(decimal.RequireFromString("500")) {
		t.Errorf("buyer USD = %s, want 500 (1000 - 5*100)", buyerUSD.Balance())
	}
	if !sellerUSD.Balance().Equal(decimal.RequireFromString("500")) {
		t.Errorf("seller USD = %s, want 500", sellerUSD.Balance())
	}

	if len(fills) != 1 {
		t.Fatalf("recorded %d fills, want 1", len(fills))
	}
	if !fills[0].Price.Equal(decimal.RequireFromString("100")) || !fills[0].Qty.Equal(decimal.RequireFromString("5")) {
		t.Errorf("fill = %+v, want price 100 qty 5", fills[0])
	}
}

func TestMarket_PartialFillRestsRemainder(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)

	seller := limitOrderFor(newOrderForFundedUser(1, "3", "0"), Sell, "100", "3")
	m.processOrder(seller)

	buyer := limitOrderFor(newOrderForFundedUser(2, "0", "1000"), Buy, "100", "5")
	m.processOrder(buyer)

	if buyer.Status != StatusResting {
		t.Fatalf("buyer status = %v, want Resting (2 of 5 unfilled)", buyer.Status)
	}
	if !buyer.RemainingQty.Equal(decimal.RequireFromString("2")) {
		t.Fatalf("buyer remaining qty = %s, want 2", buyer.RemainingQty)
	}

	buyerUSD, _ := buyer.User.Ledger.Wallet("USD")
	if !buyerUSD.Balance().Equal(decimal.RequireFromString("500")) {
		t.Errorf("buyer USD after 3 filled + 2 escrowed = %s, want 500 (1000 - 300 - 200)", buyerUSD.Balance())
	}

	asks := m.Book().Asks()
	if len(asks) != 0 {
		t.Errorf("asks remaining = %d, want 0 (the only ask was fully consumed)", len(asks))
	}
	bids := m.Book().Bids()
	if len(bids) != 1 {
		t.Fatalf("bids remaining = %d, want 1 (the partially filled buy order)", len(bids))
	}
}

func TestMarket_NonCrossingOrdersBothRest(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)

	ask := limitOrderFor(newOrderForFundedUser(1, "5", "0"), Sell, "110", "1")
	m.processOrder(ask)
	bid := limitOrderFor(newOrderForFundedUser(2, "0", "1000"), Buy, "100", "1")
	m.processOrder(bid)

	if ask.Status != StatusResting || bid.Status != StatusResting {
		t.Fatalf("ask status = %v, bid status = %v, want both Resting", ask.Status, bid.Status)
	}
	if len(m.Book().Asks()) != 1 || len(m.Book().Bids()) != 1 {
		t.Fatalf("book has %d asks, %d bids, want 1 and 1", len(m.Book().Asks()), len(m.Book().Bids()))
	}
}

func TestMarket_RestRejectedOnInsufficientFunds(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)

	buyer := limitOrderFor(newOrderForFundedUser(1, "0", "0"), Buy, "100", "1")
	m.processOrder(buyer)

	if buyer.Status != StatusRejected {
		t.Fatalf("status = %v, want Rejected", buyer.Status)
	}
	if apperr.KindOf(buyer.SettleErr) != apperr.KindInsufficientFunds {
		t.Fatalf("SettleErr kind = %v, want KindInsufficientFunds", apperr.KindOf(buyer.SettleErr))
	}
}

func TestMarket_MarketOrderSweepsThenCancelsRemainder(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)

	ask1 := limitOrderFor(newOrderForFundedUser(1, "3", "0"), Sell, "100", "3")
	m.processOrder(ask1)
	ask2 := limitOrderFor(newOrderForFundedUser(2, "3", "0"), Sell, "105", "3")
	m.processOrder(ask2)

	taker := newOrderForFundedUser(3, "0", "10000")
	taker.Side = Buy
	taker.Kind = MarketOrder
	taker.SourceQty = decimal.RequireFromString("10")
	taker.RemainingQty = taker.SourceQty
	taker.Done = make(chan struct{})
	m.processOrder(taker)

	if taker.Status != StatusPartialUnfilled {
		t.Fatalf("market order status = %v, want PartialUnfilled (10 requested, only 6 resting)", taker.Status)
	}
	if !taker.RemainingQty.Equal(decimal.RequireFromString("4")) {
		t.Fatalf("remaining qty = %s, want 4", taker.RemainingQty)
	}
	if len(m.Book().Asks()) != 0 {
		t.Fatalf("asks after a full sweep = %d, want 0", len(m.Book().Asks()))
	}
}

func TestMarket_CanonicalSide(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)

	side, ok := m.CanonicalSide("BTC", "USD")
	if !ok || side != Sell {
		t.Fatalf("CanonicalSide(BTC, USD) = (%v, %v), want (Sell, true)", side, ok)
	}
	side, ok = m.CanonicalSide("USD", "BTC")
	if !ok || side != Buy {
		t.Fatalf("CanonicalSide(USD, BTC) = (%v, %v), want (Buy, true)", side, ok)
	}
	if _, ok := m.CanonicalSide("ETH", "USD"); ok {
		t.Fatal("CanonicalSide with a symbol outside the pair returned ok=true")
	}
}

func TestMarket_TrySendOrder_BackpressureWhenInboxFull(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)
	for i := 0; i < inboxCapacity; i++ {
		if err := m.TrySendOrder(&Order{}); err != nil {
			t.Fatalf("TrySendOrder #%d: %v", i, err)
		}
	}
	err := m.TrySendOrder(&Order{})
	if apperr.KindOf(err) != apperr.KindBackpressure {
		t.Fatalf("TrySendOrder on a full inbox kind = %v, want KindBackpressure", apperr.KindOf(err))
	}
}

func TestMarket_StartStop_ProcessesAsynchronously(t *testing.T) {
	m := NewMarket("BTC", "USD", nil, nil)
	m.Start()
	defer m.Stop()

	seller := limitOrderFor(newOrderForFundedUser(1, "5", "0"), Sell, "100", "5")
	if err := m.TrySendOrder(seller); err != nil {
		t.Fatalf("TrySendOrder: %v", err)
	}

	select {
	case <-seller.Done:
	case <-time.After(2 * time.Second):
		t.Fatal("order was never processed by the worker goroutine")
	}
	if seller.Status != StatusResting {
		t.Fatalf("status = %v, want Resting", seller.Status)
	}
}
