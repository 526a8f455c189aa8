package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is Buy or Sell, derived from comparing an order's source symbol to
// its market's first symbol (see Market.CanonicalSide).
type Side int8

const (
	Sell Side = iota
	Buy
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Kind is Market or Limit.
type Kind int8

const (
	Limit Kind = iota
	MarketOrder
)

func (k Kind) String() string {
	if k == MarketOrder {
		return "market"
	}
	return "limit"
}

// Status is the lifecycle state of an Order.
type Status int8

const (
	StatusNew Status = iota
	StatusPending
	StatusResting
	StatusFilled
	StatusPartialUnfilled
	StatusRejected
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusResting:
		return "resting"
	case StatusFilled:
		return "filled"
	case StatusPartialUnfilled:
		return "partial_unfilled"
	case StatusRejected:
		return "rejected"
	case StatusFailed:
		return "failed"
	default:
		return "new"
	}
}

// Order is a single trade request moving through a Market. OrderID is
// zero until the engine decides to rest the order (assigned at that
// moment); it is never reused.
type Order struct {
	OrderID      int64
	User         *User
	Pair         SwapPair
	Side         Side
	Kind         Kind
	SourceQty    decimal.Decimal
	RemainingQty decimal.Decimal
	// Price is nil for Market orders, non-nil for Limit orders.
	Price     *decimal.Decimal
	Status    Status
	CreatedAt time.Time
	SettleErr error

	// Done is closed by the market worker once the order reaches a
	// terminal outcome (Filled, PartialUnfilled, Rejected, Failed) or
	// rests (Resting). A caller waiting on an RPC may stop selecting on it
	// at any time — closing it never blocks the worker, so a caller giving up
	// never stalls matching.
	Done chan struct{}
}

// NewOrder builds a new order in state New. qty and price must already be
// validated positive by the caller.
func NewOrder(user *User, pair SwapPair, side Side, kind Kind, qty decimal.Decimal, price *decimal.Decimal, now time.Time) *Order {
	return &Order{
		User:         user,
		Pair:         pair,
		Side:         side,
		Kind:         kind,
		SourceQty:    qty,
		RemainingQty: qty,
		Price:        price,
		Status:       StatusNew,
		CreatedAt:    now,
		Done:         make(chan struct{}),
	}
}

// FilledQty is how much of the order has executed so far.
func (o *Order) FilledQty() decimal.Decimal {
	return o.SourceQty.Sub(o.RemainingQty)
}

// less reports the priority order between two resting limit orders on the
// same side: for bids, higher price first, then lower order_id; for
// asks, lower price first, then lower order_id. Market orders never
// rest, so both operands always carry a price here.
func less(side Side, a, b *Order) bool {
	pa, pb := *a.Price, *b.Price
	if !pa.Equal(pb) {
		if side == Buy {
			return pa.GreaterThan(pb)
		}
		return pa.LessThan(pb)
	}
	return a.OrderID < b.OrderID
}
